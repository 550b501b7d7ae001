package service

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/satyogainstitute/portal/database"
	"github.com/satyogainstitute/portal/database/model"
	"github.com/satyogainstitute/portal/logger"
)

// FormService journals submissions locally before relaying them to the
// application backend, so a backend outage loses nothing. Validation
// failures are returned to the caller and not journaled as relayable.
type FormService struct {
	backend *BackendClient
}

func NewFormService(backend *BackendClient) *FormService {
	return &FormService{backend: backend}
}

// Submit journals and relays one form submission. On a backend outage
// the journal entry stays unrelayed and the submission id is still
// returned so the user sees success.
func (s *FormService) Submit(ctx context.Context, token, formSlug string, payload map[string]any) (string, error) {
	blob, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	submission := &model.FormSubmission{
		SubmissionId: uuid.NewString(),
		FormSlug:     formSlug,
		Payload:      string(blob),
	}
	db := database.GetDB()
	if err := db.Create(submission).Error; err != nil {
		return "", err
	}

	err = s.backend.SubmitForm(ctx, token, formSlug, payload)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			// Field errors go back inline; drop the journal entry since
			// the user will correct and resubmit.
			db.Delete(submission)
			return "", ve
		}
		logger.Warningf("form %s: relay failed, journaled for retry: %v", formSlug, err)
		return submission.SubmissionId, nil
	}

	submission.Relayed = true
	if err := db.Save(submission).Error; err != nil {
		logger.Warning("form journal: mark relayed:", err)
	}
	return submission.SubmissionId, nil
}

// RetryUnrelayed re-relays journaled submissions that never reached the
// backend. Called from the reconciliation job.
func (s *FormService) RetryUnrelayed(ctx context.Context) {
	db := database.GetDB()
	var pending []*model.FormSubmission
	if err := db.Where("relayed = ?", false).Limit(100).Find(&pending).Error; err != nil {
		logger.Warning("form retry: query:", err)
		return
	}

	for _, submission := range pending {
		var payload map[string]any
		if err := json.Unmarshal([]byte(submission.Payload), &payload); err != nil {
			logger.Warningf("form retry: bad journal payload %s: %v", submission.SubmissionId, err)
			continue
		}
		if err := s.backend.SubmitForm(ctx, "", submission.FormSlug, payload); err != nil {
			logger.Warningf("form retry: %s: %v", submission.SubmissionId, err)
			continue
		}
		submission.Relayed = true
		if err := db.Save(submission).Error; err != nil {
			logger.Warning("form retry: save:", err)
		}
	}
}

// ListSubmissions returns recent journaled submissions for the admin
// back-office.
func (s *FormService) ListSubmissions(limit int) ([]*model.FormSubmission, error) {
	db := database.GetDB()
	var submissions []*model.FormSubmission
	err := db.Order("created_at desc").Limit(limit).Find(&submissions).Error
	return submissions, err
}
