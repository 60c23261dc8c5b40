package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stepwise/formwizard/internal/events"
	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/wizard"
)

// prevStepField is the form field naming the step to navigate back to,
// taking precedence over submission
const prevStepField = "wizard_prev_step"

var (
	ErrParseForm  = errors.New("failed to parse form")
	ErrSubmitStep = errors.New("failed to submit step")
)

// handleEntry redirects to the session's current step, resetting first
// when the request carries ?reset
func (s *Server) handleEntry(c *gin.Context) {
	_, sess, ok := s.session(c, c.Param("name"))
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, reset := c.GetQuery("reset"); reset {
		if _, err := sess.Begin(ctx); err != nil {
			s.internalError(c, err)
			return
		}
		s.publish(events.SessionStarted, sess, "")
	}

	current, err := sess.Current()
	if err != nil {
		s.internalError(c, err)
		return
	}
	s.redirectToStep(c, sess, current)
}

// handleGetStep renders the named step, redirecting when the URL names a
// step outside the active set. The reserved "done" step runs the
// completion gate
func (s *Server) handleGetStep(c *gin.Context) {
	w, sess, ok := s.session(c, c.Param("name"))
	if !ok {
		return
	}
	ctx := c.Request.Context()
	step := api.Name(c.Param("step"))

	if step == wizard.DoneStepName {
		s.finalize(c, w, sess)
		return
	}

	seq, err := sess.Sequence()
	if err != nil {
		s.internalError(c, err)
		return
	}
	if !seq.Contains(step) {
		s.redirectToStep(c, sess, seq.Current(sess.State()))
		return
	}
	if step != seq.Current(sess.State()) {
		if err := sess.GoTo(ctx, step); err != nil {
			s.internalError(c, err)
			return
		}
	}

	s.renderStep(c, w, sess, step, nil)
}

// handlePostStep accepts a step submission. A wizard_prev_step field
// navigates backward without validation; otherwise the current step is
// validated, stored, and the session advances or completes
func (s *Server) handlePostStep(c *gin.Context) {
	w, sess, ok := s.session(c, c.Param("name"))
	if !ok {
		return
	}
	ctx := c.Request.Context()
	step := api.Name(c.Param("step"))

	raw, uploads, err := parseSubmission(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrParseForm, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	seq, err := sess.Sequence()
	if err != nil {
		s.internalError(c, err)
		return
	}

	if prev := api.Name(raw.Get(prevStepField)); prev != "" {
		if seq.Contains(prev) {
			if err := sess.GoTo(ctx, prev); err != nil {
				s.internalError(c, err)
				return
			}
			s.redirectToStep(c, sess, prev)
			return
		}
	}

	// Submissions always apply to the stored current step; a stale URL
	// redirects rather than validating the wrong schema
	if step != seq.Current(sess.State()) {
		s.redirectToStep(c, sess, seq.Current(sess.State()))
		return
	}

	outcome, err := sess.Submit(ctx, raw, uploads)
	if err != nil {
		s.internalError(c, fmt.Errorf("%w: %w", ErrSubmitStep, err))
		return
	}
	s.resolveOutcome(c, w, sess, outcome)
}

// handleProgress reports how far a session has advanced
func (s *Server) handleProgress(c *gin.Context) {
	w, sess, ok := s.session(c, c.Param("name"))
	if !ok {
		return
	}

	seq, err := sess.Sequence()
	if err != nil {
		s.internalError(c, err)
		return
	}
	current := seq.Current(sess.State())

	c.JSON(http.StatusOK, api.ProgressResponse{
		Wizard:  w.Name,
		Current: current,
		Steps:   seq.Names(),
		Index:   seq.Index(current),
		Count:   seq.Count(),
	})
}

func (s *Server) finalize(
	c *gin.Context, w *wizard.Wizard, sess *wizard.Session,
) {
	outcome, err := sess.Finalize(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	s.resolveOutcome(c, w, sess, outcome)
}

func (s *Server) resolveOutcome(
	c *gin.Context, w *wizard.Wizard, sess *wizard.Session,
	outcome *wizard.SubmitOutcome,
) {
	switch outcome.Status {
	case wizard.StepRejected:
		s.publish(events.StepRejected, sess, outcome.Step)
		s.renderStep(c, w, sess, outcome.Step, outcome.Errors)

	case wizard.StepAdvanced:
		s.publish(events.StepSubmitted, sess, outcome.Step)
		s.redirectToStep(c, sess, outcome.Step)

	case wizard.RevalidationFailed:
		s.publish(events.RevalidationFailed, sess, outcome.Step)
		s.redirectToStep(c, sess, outcome.Step)

	case wizard.WizardCompleted:
		s.publish(events.WizardCompleted, sess, "")
		c.JSON(http.StatusOK, api.CompletedResponse{
			Message: "Wizard completed",
			Wizard:  w.Name,
			Data:    outcome.Completion.Merged,
		})
	}
}

func (s *Server) redirectToStep(
	c *gin.Context, sess *wizard.Session, step api.Name,
) {
	c.Redirect(http.StatusFound, fmt.Sprintf(
		"/wizard/%s/%s", wizardName(sess.Key()), step,
	))
}

func (s *Server) internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:  err.Error(),
		Status: http.StatusInternalServerError,
	})
}

// parseSubmission extracts raw form values and uploads from the request.
// Multipart bodies carry the uploads; urlencoded bodies carry values only
func parseSubmission(c *gin.Context) (api.RawValues, []*wizard.Upload, error) {
	contentType := c.ContentType()
	if contentType != "multipart/form-data" {
		if err := c.Request.ParseForm(); err != nil {
			return nil, nil, err
		}
		return api.RawValues(c.Request.PostForm), nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, err
	}

	raw := api.RawValues(form.Value)
	var uploads []*wizard.Upload
	for field, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			return nil, nil, err
		}
		payload, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, nil, err
		}

		uploads = append(uploads, &wizard.Upload{
			Reader:      bytes.NewReader(payload),
			Field:       field,
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
		})
	}
	return raw, uploads, nil
}

// wizardName recovers the wizard's name from a session storage key
func wizardName(key string) string {
	name, _, _ := strings.Cut(key, ":")
	return name
}
