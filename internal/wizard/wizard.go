package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"bloodlink.org/internal/obs"
	"bloodlink.org/internal/session"
)

var (
	ErrNotOnFinalStep   = errors.New("wizard: submit is only allowed on the final step")
	ErrAlreadySubmitted = errors.New("wizard: draft already submitted")
)

// RegisterResult is what the backend returns for a successful
// registration. Token is optional; when present the session store's
// Login is invoked rather than writing storage keys directly.
type RegisterResult struct {
	Token string       `json:"token,omitempty"`
	User  session.User `json:"user"`
}

// Backend is the slice of the portal API the wizard submits through.
type Backend interface {
	Register(ctx context.Context, draft Draft, idemKey string) (RegisterResult, error)
	EmergencyRequest(ctx context.Context, req EmergencyRequest, idemKey string) error
}

// Wizard walks a draft through the six registration steps. Forward
// moves validate the current step; backward moves never do.
type Wizard struct {
	mu        sync.Mutex
	backend   Backend
	sessions  *session.Store
	mirror    session.Storage
	step      int
	draft     Draft
	submitted bool
	idemKey   string
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithSessionStore lets a registration that returns a token establish
// the session through the store instead of ad hoc storage writes.
func WithSessionStore(s *session.Store) Option {
	return func(w *Wizard) { w.sessions = s }
}

// WithDraftMirror persists the draft after every mutation so an
// interrupted registration can pick up where it left off.
func WithDraftMirror(storage session.Storage) Option {
	return func(w *Wizard) { w.mirror = storage }
}

// New builds a wizard at step 1. If a mirrored draft exists it is
// loaded, but the wizard still starts at step 1 and revalidates forward.
func New(backend Backend, opts ...Option) (*Wizard, error) {
	if backend == nil {
		return nil, errors.New("wizard: backend is required")
	}
	w := &Wizard{
		backend: backend,
		step:    MinStep,
		idemKey: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.mirror != nil {
		w.loadMirror()
	}
	return w, nil
}

// Step returns the current step, 1 through 6.
func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Draft returns a copy of the accumulated draft.
func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Update mutates the draft through fn and mirrors the result.
func (w *Wizard) Update(fn func(*Draft)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.draft)
	w.saveMirrorLocked()
}

// Next validates the current step and advances on success. The first
// failing rule is returned and the step does not change.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := ValidateStep(w.step, w.draft); err != nil {
		return err
	}
	if w.step < MaxStep {
		w.step++
	}
	return nil
}

// Back moves one step back without validating. Never fails.
func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > MinStep {
		w.step--
	}
}

// Submit re-runs the required validators plus the terms check and sends
// the complete draft to the backend exactly once. A token in the
// response establishes the session via the store; without one the user
// proceeds to an explicit login.
func (w *Wizard) Submit(ctx context.Context) (RegisterResult, error) {
	w.mu.Lock()
	if w.submitted {
		w.mu.Unlock()
		return RegisterResult{}, ErrAlreadySubmitted
	}
	if w.step != MaxStep {
		step := w.step
		w.mu.Unlock()
		return RegisterResult{}, fmt.Errorf("%w: at step %d", ErrNotOnFinalStep, step)
	}
	draft := w.draft
	idemKey := w.idemKey
	w.mu.Unlock()

	for _, step := range requiredSteps {
		if err := ValidateStep(step, draft); err != nil {
			return RegisterResult{}, err
		}
	}
	if err := validateTerms(draft); err != nil {
		return RegisterResult{}, err
	}
	if normalized, err := NormalizeMobile(draft.Mobile); err == nil {
		draft.Mobile = normalized
	}

	res, err := w.backend.Register(ctx, draft, idemKey)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("register: %w", err)
	}

	w.mu.Lock()
	w.submitted = true
	w.clearMirrorLocked()
	sessions := w.sessions
	w.mu.Unlock()

	if res.Token != "" && sessions != nil {
		if _, err := sessions.Login(session.RoleReceiver, res.Token, res.User, nil); err != nil {
			obs.LogEvent("post_register_login_failed", map[string]any{"error": err.Error()})
		}
	}
	return res, nil
}

// EmergencySubmit is the distinct reduced-field path: it bypasses the
// step machine entirely and submits immediately.
func (w *Wizard) EmergencySubmit(ctx context.Context, req EmergencyRequest) error {
	if err := ValidateEmergency(req); err != nil {
		return err
	}
	normalized, err := NormalizeMobile(req.Mobile)
	if err == nil {
		req.Mobile = normalized
	}
	if err := w.backend.EmergencyRequest(ctx, req, uuid.NewString()); err != nil {
		return fmt.Errorf("emergency request: %w", err)
	}
	return nil
}

func (w *Wizard) loadMirror() {
	raw, ok := w.mirror.Get(session.KeyRegistrationDraft)
	if !ok || raw == "" || raw == "undefined" || raw == "null" {
		return
	}
	var d Draft
	if err := jsonUnmarshal(raw, &d); err != nil {
		return
	}
	w.draft = d
}

func (w *Wizard) saveMirrorLocked() {
	if w.mirror == nil {
		return
	}
	data, err := jsonMarshal(w.draft)
	if err != nil {
		return
	}
	if err := w.mirror.Set(session.KeyRegistrationDraft, data); err != nil {
		obs.LogEvent("draft_mirror_failed", map[string]any{"error": err.Error()})
	}
}

func (w *Wizard) clearMirrorLocked() {
	if w.mirror == nil {
		return
	}
	_ = w.mirror.Delete(session.KeyRegistrationDraft)
}

func jsonMarshal(v any) (string, error) {
	data, err := json.Marshal(v)
	return string(data), err
}

func jsonUnmarshal(raw string, v any) error {
	return json.Unmarshal([]byte(raw), v)
}
