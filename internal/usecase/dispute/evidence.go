package dispute

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/storage"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
	"github.com/sirupsen/logrus"
)

// EvidenceStorage - файловое хранилище доказательств.
type EvidenceStorage interface {
	Save(ctx context.Context, disputeID uuid.UUID, originalName string, r io.Reader) (*storage.StoredFile, error)
	Delete(ctx context.Context, relativePath string) error
}

type AddEvidenceInput struct {
	DisputeID uuid.UUID
	Actor     lifecycle.Actor
	FileName  string
	Content   io.Reader
}

type AddEvidenceUseCase struct {
	store    repository.Store
	files    EvidenceStorage
	recorder *lifecycle.Recorder
}

func NewAddEvidenceUseCase(store repository.Store, files EvidenceStorage, recorder *lifecycle.Recorder) *AddEvidenceUseCase {
	return &AddEvidenceUseCase{store: store, files: files, recorder: recorder}
}

func (uc *AddEvidenceUseCase) Execute(ctx context.Context, input AddEvidenceInput) (*entity.DisputeEvidence, error) {
	const action = "dispute.evidence_added"
	evidence, err := uc.execute(ctx, input)
	if err != nil {
		uc.recorder.Fail(action, err)
		return nil, err
	}
	return evidence, nil
}

func (uc *AddEvidenceUseCase) execute(ctx context.Context, input AddEvidenceInput) (*entity.DisputeEvidence, error) {
	repos := uc.store.Repositories()
	d, err := repos.Disputes.FindByID(ctx, input.DisputeID)
	if err != nil {
		return nil, err
	}
	if err := authorizeParticipant(ctx, repos, d, input.Actor); err != nil {
		return nil, err
	}
	if !d.Status.IsActive() {
		return nil, apperror.InvalidTransition("доказательства принимаются только по открытому спору")
	}

	stored, err := uc.files.Save(ctx, d.ID, input.FileName, input.Content)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedType):
			return nil, apperror.Validation("допустимы только изображения JPEG, PNG, WEBP, HEIF и PDF")
		case errors.Is(err, storage.ErrTooLarge):
			return nil, apperror.Validation("файл превышает допустимый размер")
		case errors.Is(err, storage.ErrEmptyFile):
			return nil, apperror.Validation("файл пустой")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сохранить файл")
	}

	evidence := &entity.DisputeEvidence{
		ID:          uuid.New(),
		DisputeID:   d.ID,
		UploadedBy:  input.Actor.ID,
		FileName:    input.FileName,
		ContentType: stored.ContentType,
		SizeBytes:   stored.Size,
		StoragePath: stored.Path,
		CreatedAt:   time.Now().UTC(),
	}

	// пока шла загрузка, спор могли разрешить: AddEvidence перепроверяет статус под блокировкой
	err = uc.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Disputes.AddEvidence(ctx, evidence); err != nil {
			return err
		}
		uc.recorder.Audit(ctx, repos, input.Actor.Ref(), entity.AuditEntityDispute, d.ID, "dispute.evidence_added", entity.AuditPayload{
			Metadata: map[string]string{
				"evidence_id":  evidence.ID.String(),
				"file_name":    evidence.FileName,
				"content_type": evidence.ContentType,
				"size_bytes":   strconv.FormatInt(evidence.SizeBytes, 10),
			},
		})
		return nil
	})
	if err != nil {
		if delErr := uc.files.Delete(ctx, stored.Path); delErr != nil {
			logger.Get().WithFields(logrus.Fields{"path": stored.Path, "error": delErr.Error()}).Warn("спор: не удалось удалить файл после отката")
		}
		return nil, err
	}
	return evidence, nil
}
