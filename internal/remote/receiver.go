package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"bloodlink.org/internal/session"
	"bloodlink.org/internal/verify"
	"bloodlink.org/internal/wizard"
)

// Receiver verification endpoints. The client satisfies verify.Backend.

// SendOTP triggers the mobile or email code send for the active receiver.
func (c *Client) SendOTP(ctx context.Context, step verify.Step) error {
	switch step {
	case verify.StepMobile:
		return c.authedCall(ctx, http.MethodPost, "/receiver/send-mobile-otp", nil, nil)
	case verify.StepEmail:
		return c.authedCall(ctx, http.MethodPost, "/receiver/send-email-verification", nil, nil)
	default:
		return fmt.Errorf("remote: step %q has no otp endpoint", step)
	}
}

// VerifyOTP submits the entered code for the given channel.
func (c *Client) VerifyOTP(ctx context.Context, step verify.Step, code string) error {
	body := map[string]string{"code": code}
	switch step {
	case verify.StepMobile:
		return c.authedCall(ctx, http.MethodPost, "/receiver/verify-mobile", body, nil)
	case verify.StepEmail:
		return c.authedCall(ctx, http.MethodPost, "/receiver/verify-email", body, nil)
	default:
		return fmt.Errorf("remote: step %q has no otp endpoint", step)
	}
}

// RequestHospitalVerification files the hospital contact for back-office
// review.
func (c *Client) RequestHospitalVerification(ctx context.Context, form verify.HospitalForm) error {
	return c.authedCall(ctx, http.MethodPost, "/receiver/request-hospital-verification", form, nil)
}

// SubmitIdentityDocuments uploads the document slots as multipart form
// data, one file part per slot plus its kind field.
func (c *Client) SubmitIdentityDocuments(ctx context.Context, docs []verify.Document) error {
	_, token := c.tokenPair()
	if strings.TrimSpace(token) == "" {
		return session.ErrNotAuthenticated
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, doc := range docs {
		if err := mw.WriteField("kind_"+doc.ID, doc.Kind); err != nil {
			return fmt.Errorf("encode document kind: %w", err)
		}
		part, err := mw.CreateFormFile(doc.ID, doc.Filename)
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		if _, err := io.Copy(part, bytes.NewReader(doc.Content)); err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finish multipart body: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/receiver/submit-identity-verification", &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return c.send(req, nil)
}

// ReceiverVerificationStatus pulls the current verdicts from the
// profile, the channel asynchronous hospital and identity decisions
// arrive on.
func (c *Client) ReceiverVerificationStatus(ctx context.Context) (verify.Status, error) {
	role, token := c.tokenPair()
	if strings.TrimSpace(token) == "" {
		return verify.Status{}, session.ErrNotAuthenticated
	}
	env, err := c.profile(ctx, role, token)
	if err != nil {
		return verify.Status{}, err
	}
	return verify.Status{
		MobileVerified:   env.Verification.MobileVerified,
		EmailVerified:    env.Verification.EmailVerified,
		HospitalVerified: env.Verification.HospitalVerified,
		IdentityVerified: env.Verification.IdentityVerified,
	}, nil
}

// Registration endpoints. The client satisfies wizard.Backend.

// Register submits the completed draft exactly once; the idempotency
// key shields against double-submits on flaky links.
func (c *Client) Register(ctx context.Context, draft wizard.Draft, idemKey string) (wizard.RegisterResult, error) {
	var res wizard.RegisterResult
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := c.jsonRequest(ctx, http.MethodPost, "/receiver/register", draft)
	if err != nil {
		return res, err
	}
	req.Header.Set("Idempotency-Key", idemKey)
	if err := c.send(req, &res); err != nil {
		return wizard.RegisterResult{}, err
	}
	return res, nil
}

// EmergencyRequest posts the reduced-field emergency blood request.
func (c *Client) EmergencyRequest(ctx context.Context, er wizard.EmergencyRequest, idemKey string) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := c.jsonRequest(ctx, http.MethodPost, "/emergency-request", er)
	if err != nil {
		return err
	}
	req.Header.Set("Idempotency-Key", idemKey)
	return c.send(req, nil)
}

// Receiver settings endpoints.

// UpdateReceiverSettings writes one settings section: communication,
// notifications or privacy.
func (c *Client) UpdateReceiverSettings(ctx context.Context, section string, payload any) error {
	switch section {
	case "communication", "notifications", "privacy":
	default:
		return fmt.Errorf("remote: unknown settings section %q", section)
	}
	return c.authedCall(ctx, http.MethodPut, "/receiver/"+section, payload, nil)
}

// ChangePassword rotates the receiver's password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"current_password": current, "new_password": next}
	return c.authedCall(ctx, http.MethodPut, "/receiver/change-password", body, nil)
}

// DeleteAccount removes the receiver account.
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.authedCall(ctx, http.MethodDelete, "/receiver/account", nil, nil)
}
