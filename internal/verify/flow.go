// Package verify implements the receiver account verification flow:
// four independent checks (mobile, email, hospital, identity) a receiver
// progresses through before gaining full portal access.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"bloodlink.org/internal/ids"
	"bloodlink.org/internal/obs"
)

// Step names one of the four verification checks.
type Step string

const (
	StepMobile   Step = "mobile"
	StepEmail    Step = "email"
	StepHospital Step = "hospital"
	StepIdentity Step = "identity"
	// StepComplete is reported once every check is verified.
	StepComplete Step = "complete"
)

// Order fixes the progression the flow auto-advances through.
var Order = []Step{StepMobile, StepEmail, StepHospital, StepIdentity}

// StepState is the sub-state of a single check. Mobile and email move
// pending → otp-sent → verified synchronously; hospital and identity
// move pending → submitted and are verified asynchronously by
// back-office staff, the verdict arriving via a later profile refresh.
type StepState string

const (
	StatePending   StepState = "pending"
	StateOTPSent   StepState = "otp-sent"
	StateSubmitted StepState = "submitted"
	StateVerified  StepState = "verified"
)

// Status holds the four verified flags. Completion percentage is always
// derived from it, never stored alongside.
type Status struct {
	MobileVerified   bool `json:"mobile_verified"`
	EmailVerified    bool `json:"email_verified"`
	HospitalVerified bool `json:"hospital_verified"`
	IdentityVerified bool `json:"identity_verified"`
}

// Percent returns the aggregate completion: 25 points per verified check.
func (s Status) Percent() int {
	n := 0
	for _, v := range []bool{s.MobileVerified, s.EmailVerified, s.HospitalVerified, s.IdentityVerified} {
		if v {
			n++
		}
	}
	return n * 25
}

func (s Status) verified(step Step) bool {
	switch step {
	case StepMobile:
		return s.MobileVerified
	case StepEmail:
		return s.EmailVerified
	case StepHospital:
		return s.HospitalVerified
	case StepIdentity:
		return s.IdentityVerified
	}
	return false
}

// HospitalForm is the request-hospital-verification payload.
type HospitalForm struct {
	HospitalName  string `json:"hospital_name"`
	ContactPerson string `json:"contact_person"`
	ContactPhone  string `json:"contact_phone"`
	Ward          string `json:"ward,omitempty"`
}

// Document is one named identity document slot.
type Document struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Filename string `json:"filename"`
	Content  []byte `json:"-"`
}

// DocKindCNIC is the national identity card; at least one is mandatory.
const DocKindCNIC = "cnic"

// MaxDocuments caps the named identity document slots.
const MaxDocuments = 5

// ResendCooldown is how long a channel must wait between OTP sends.
const ResendCooldown = 60 * time.Second

var (
	ErrCooldown         = errors.New("verify: resend cooldown active")
	ErrBadCode          = errors.New("verify: code must be exactly 6 digits")
	ErrCodeRejected     = errors.New("verify: code rejected")
	ErrMissingContact   = errors.New("verify: contact person name and phone are required")
	ErrNoIdentityProof  = errors.New("verify: at least one cnic document is required")
	ErrTooManyDocuments = errors.New("verify: too many document slots")
)

// Backend is the slice of the portal API the flow talks to.
type Backend interface {
	SendOTP(ctx context.Context, step Step) error
	VerifyOTP(ctx context.Context, step Step, code string) error
	RequestHospitalVerification(ctx context.Context, form HospitalForm) error
	SubmitIdentityDocuments(ctx context.Context, docs []Document) error
}

// Flow tracks one receiver's progression through the checks. Every
// network failure is returned to the caller; the flow never retries on
// its own.
type Flow struct {
	mu      sync.Mutex
	backend Backend
	now     func() time.Time

	status   Status
	states   map[Step]StepState
	active   Step
	limiters map[Step]*rate.Limiter
	lastSend map[Step]time.Time
}

// Option configures a Flow.
type Option func(*Flow)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(f *Flow) {
		if fn != nil {
			f.now = fn
		}
	}
}

// WithStatus seeds the flow from a previously fetched profile, so a
// resumed flow lands on the first incomplete step.
func WithStatus(status Status) Option {
	return func(f *Flow) { f.status = status }
}

// NewFlow builds a flow over the given backend.
func NewFlow(backend Backend, opts ...Option) (*Flow, error) {
	if backend == nil {
		return nil, errors.New("verify: backend is required")
	}
	f := &Flow{
		backend:  backend,
		now:      time.Now,
		states:   make(map[Step]StepState, len(Order)),
		limiters: make(map[Step]*rate.Limiter, 2),
		lastSend: make(map[Step]time.Time, 2),
	}
	for _, opt := range opts {
		opt(f)
	}
	for _, step := range Order {
		if f.status.verified(step) {
			f.states[step] = StateVerified
		} else {
			f.states[step] = StatePending
		}
	}
	for _, step := range []Step{StepMobile, StepEmail} {
		f.limiters[step] = rate.NewLimiter(rate.Every(ResendCooldown), 1)
	}
	f.active = f.firstIncompleteLocked()
	return f, nil
}

// Status returns a copy of the verified flags.
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Percent returns the derived completion percentage.
func (f *Flow) Percent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status.Percent()
}

// ActiveStep returns the step the flow currently points at.
func (f *Flow) ActiveStep() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// StepState reports the sub-state of one check.
func (f *Flow) StepState(step Step) StepState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[step]
}

// Select jumps to a step. Steps are independently selectable from the
// progress UI regardless of prior-step completion.
func (f *Flow) Select(step Step) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, known := range Order {
		if step == known {
			f.active = step
			return
		}
	}
}

// Resume points the flow back at the first incomplete step, the position
// a skipped-and-returned user lands on.
func (f *Flow) Resume() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = f.firstIncompleteLocked()
	return f.active
}

// Skip abandons the flow without touching any flag. The flow stays
// resumable; callers route the user to the dashboard.
func (f *Flow) Skip() Status {
	return f.Status()
}

// SendOTP asks the backend to send a code on the mobile or email
// channel. A second send inside the 60 second cooldown is refused
// locally without a network call.
func (f *Flow) SendOTP(ctx context.Context, step Step) error {
	if step != StepMobile && step != StepEmail {
		return fmt.Errorf("verify: step %q has no otp channel", step)
	}
	f.mu.Lock()
	lim := f.limiters[step]
	now := f.now()
	if !lim.AllowN(now, 1) {
		remaining := f.cooldownRemainingLocked(step, now)
		f.mu.Unlock()
		return fmt.Errorf("%w: %s left", ErrCooldown, remaining.Round(time.Second))
	}
	f.lastSend[step] = now
	f.mu.Unlock()

	if err := f.backend.SendOTP(ctx, step); err != nil {
		// The send never happened; hand the cooldown back so the user
		// can retry immediately.
		f.mu.Lock()
		f.limiters[step] = rate.NewLimiter(rate.Every(ResendCooldown), 1)
		delete(f.lastSend, step)
		f.mu.Unlock()
		return fmt.Errorf("send otp: %w", err)
	}

	f.mu.Lock()
	if f.states[step] != StateVerified {
		f.states[step] = StateOTPSent
	}
	f.mu.Unlock()
	obs.CountOTPSend(string(step))
	return nil
}

// CooldownRemaining reports how long until the channel may resend.
func (f *Flow) CooldownRemaining(step Step) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cooldownRemainingLocked(step, f.now())
}

func (f *Flow) cooldownRemainingLocked(step Step, now time.Time) time.Duration {
	last, ok := f.lastSend[step]
	if !ok {
		return 0
	}
	remaining := ResendCooldown - now.Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// VerifyOTP submits a 6-digit code. A rejected code leaves the step
// exactly where it was; an accepted one marks it verified and advances
// the flow to the next incomplete step.
func (f *Flow) VerifyOTP(ctx context.Context, step Step, code string) (Step, error) {
	if step != StepMobile && step != StepEmail {
		return f.ActiveStep(), fmt.Errorf("verify: step %q has no otp channel", step)
	}
	if !validOTP(code) {
		return f.ActiveStep(), ErrBadCode
	}
	if err := f.backend.VerifyOTP(ctx, step, code); err != nil {
		return f.ActiveStep(), fmt.Errorf("%w: %v", ErrCodeRejected, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.markVerifiedLocked(step)
	f.active = f.firstIncompleteLocked()
	return f.active, nil
}

// SubmitHospital files the hospital verification request. Success moves
// the step to submitted; the verified verdict arrives asynchronously via
// ApplyProfile.
func (f *Flow) SubmitHospital(ctx context.Context, form HospitalForm) error {
	form.ContactPerson = strings.TrimSpace(form.ContactPerson)
	form.ContactPhone = strings.TrimSpace(form.ContactPhone)
	if form.ContactPerson == "" || form.ContactPhone == "" {
		return ErrMissingContact
	}
	if err := f.backend.RequestHospitalVerification(ctx, form); err != nil {
		return fmt.Errorf("request hospital verification: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.states[StepHospital] != StateVerified {
		f.states[StepHospital] = StateSubmitted
	}
	return nil
}

// SubmitIdentity uploads the identity document slots. At least one CNIC
// document is mandatory; slots beyond MaxDocuments are refused.
func (f *Flow) SubmitIdentity(ctx context.Context, docs []Document) error {
	if len(docs) > MaxDocuments {
		return fmt.Errorf("%w: %d > %d", ErrTooManyDocuments, len(docs), MaxDocuments)
	}
	hasCNIC := false
	for i := range docs {
		docs[i].Kind = strings.TrimSpace(strings.ToLower(docs[i].Kind))
		if docs[i].ID == "" {
			docs[i].ID = ids.NewDocument()
		}
		if docs[i].Kind == DocKindCNIC && len(docs[i].Content) > 0 {
			hasCNIC = true
		}
	}
	if !hasCNIC {
		return ErrNoIdentityProof
	}
	if err := f.backend.SubmitIdentityDocuments(ctx, docs); err != nil {
		return fmt.Errorf("submit identity documents: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.states[StepIdentity] != StateVerified {
		f.states[StepIdentity] = StateSubmitted
	}
	return nil
}

// ApplyProfile folds asynchronously decided verdicts from a profile
// refresh into the flow. Flags never regress: a locally verified step
// stays verified even if the snapshot lags behind.
func (f *Flow) ApplyProfile(snapshot Status) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, step := range Order {
		if snapshot.verified(step) {
			f.markVerifiedLocked(step)
		}
	}
	f.active = f.firstIncompleteLocked()
	return f.status
}

func (f *Flow) markVerifiedLocked(step Step) {
	f.states[step] = StateVerified
	switch step {
	case StepMobile:
		f.status.MobileVerified = true
	case StepEmail:
		f.status.EmailVerified = true
	case StepHospital:
		f.status.HospitalVerified = true
	case StepIdentity:
		f.status.IdentityVerified = true
	}
}

func (f *Flow) firstIncompleteLocked() Step {
	for _, step := range Order {
		if f.states[step] != StateVerified {
			return step
		}
	}
	return StepComplete
}

func validOTP(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
