package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"plumbstore/internal/auth"
	"plumbstore/internal/events"
	"plumbstore/internal/metrics"
	"plumbstore/internal/model"
	"plumbstore/internal/repository"
	"plumbstore/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// PlumberRequestOptions holds the service request lifecycle switches.
type PlumberRequestOptions struct {
	Policy                   model.TransitionPolicy
	RatingRequiresCompletion bool
}

type plumberRequestService struct {
	repo     repository.PlumberRequestRepository
	images   storage.ImageStore
	machine  statusMachine
	opts     PlumberRequestOptions
	events   eventSink
	recorder metrics.Recorder
	logger   zerolog.Logger
}

// NewPlumberRequestService creates a new plumber request service.
func NewPlumberRequestService(
	repo repository.PlumberRequestRepository,
	images storage.ImageStore,
	publisher events.Publisher,
	recorder metrics.Recorder,
	opts PlumberRequestOptions,
	logger zerolog.Logger,
) PlumberRequestService {
	logger = logger.With().Str("service", "plumber_request").Logger()
	return &plumberRequestService{
		repo:     repo,
		images:   images,
		machine:  newStatusMachine(opts.Policy),
		opts:     opts,
		events:   eventSink{publisher: publisher, recorder: recorder, logger: logger},
		recorder: recorder,
		logger:   logger,
	}
}

// CreateRequest stores the photo, if any, then records the pending request.
func (s *plumberRequestService) CreateRequest(ctx context.Context, actor auth.Identity, req *model.CreatePlumberRequest, image *ImageUpload) (*model.PlumberRequest, error) {
	if req == nil {
		return nil, model.ErrRequestFields
	}
	address := strings.TrimSpace(req.Address)
	phone := strings.TrimSpace(req.PhoneNumber)
	problem := strings.TrimSpace(req.ProblemDescription)
	if address == "" || phone == "" || problem == "" {
		return nil, model.ErrRequestFields
	}

	var imageRef *string
	if image != nil {
		if !strings.HasPrefix(image.ContentType, "image/") {
			return nil, model.ErrInvalidImage
		}
		key := storage.ImageKey(storage.PlumberRequestPrefix, image.Filename, time.Now())
		location, err := s.images.Save(ctx, key, image.ContentType, image.Body)
		if err != nil {
			s.logger.Error().Err(err).Str("key", key).Msg("failed to store request image")
			return nil, model.PersistenceError("failed to store image", err)
		}
		imageRef = &location
	}

	now := time.Now().UTC()
	pr := &model.PlumberRequest{
		ID:                 uuid.New(),
		UserID:             actor.UserID,
		Address:            address,
		PhoneNumber:        phone,
		ProblemDescription: problem,
		Image:              imageRef,
		Status:             model.StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, pr); err != nil {
		if imageRef != nil {
			s.discardImage(ctx, *imageRef)
		}
		return nil, model.PersistenceError("failed to create plumber request", err)
	}

	s.recorder.PlumberRequestCreated()
	s.events.publish(ctx, events.PlumberRequestCreatedRoutingKey, events.PlumberRequestCreated{
		RequestID: pr.ID, UserID: pr.UserID, Address: pr.Address,
	})
	s.logger.Info().Str("request_id", pr.ID.String()).Int64("user_id", actor.UserID).Msg("plumber request created")

	return pr, nil
}

// discardImage removes an image whose request row was never written. The request context may
// already be cancelled, so the delete runs detached from it.
func (s *plumberRequestService) discardImage(ctx context.Context, key string) {
	if err := s.images.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Error().Err(err).Str("image_key", key).Msg("orphaned request image left in storage")
	}
}

// UpdateStatus follows the same machine as orders over independent state.
func (s *plumberRequestService) UpdateStatus(ctx context.Context, actor auth.Identity, id uuid.UUID, raw string) (*model.PlumberRequest, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrAdminRequired
	}
	next, err := s.machine.parse(raw)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, model.PersistenceError("failed to update request status", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Error().Err(err).Str("request_id", id.String()).Msg("failed to rollback transaction")
		}
	}()

	current, ownerID, err := s.repo.GetStatusForUpdate(ctx, tx, id)
	if err != nil {
		return nil, translateRepoError(err, model.ErrRequestNotFound, "failed to update request status")
	}

	changed, err := s.machine.check(current, next)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.repo.UpdateStatus(ctx, tx, id, next); err != nil {
			return nil, translateRepoError(err, model.ErrRequestNotFound, "failed to update request status")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, model.PersistenceError("failed to update request status", err)
	}
	committed = true

	if changed {
		s.recorder.StatusChanged("plumber_request", string(next))
		s.events.publish(ctx, events.PlumberRequestStatusChangedRoutingKey, events.StatusChanged{
			ID: id, UserID: ownerID, From: current, To: next,
		})
	}

	pr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, model.ErrRequestNotFound, "failed to get plumber request")
	}
	return pr, nil
}

// RateAndComment writes rating and comment independently. Only the requester may rate.
func (s *plumberRequestService) RateAndComment(ctx context.Context, actor auth.Identity, id uuid.UUID, req *model.RatingCommentRequest) (*model.PlumberRequest, error) {
	if req == nil {
		return nil, model.ErrRatingOrComment
	}
	comment := req.Comment
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if trimmed == "" {
			comment = nil
		} else {
			comment = &trimmed
		}
	}
	if req.Rating == nil && comment == nil {
		return nil, model.ErrRatingOrComment
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		return nil, model.ErrInvalidRating
	}

	if err := s.checkRatable(ctx, actor, id); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateRatingComment(ctx, id, actor.UserID, s.opts.RatingRequiresCompletion, req.Rating, comment)
	if errors.Is(err, model.ErrNotFound) {
		// The guarded write matched nothing, so the row changed after the check. Report why.
		if err := s.checkRatable(ctx, actor, id); err != nil {
			return nil, err
		}
		return nil, model.ErrRequestNotFound
	}
	if err != nil {
		return nil, translateRepoError(err, model.ErrRequestNotFound, "failed to rate plumber request")
	}
	return updated, nil
}

// checkRatable reports whether actor may rate request id right now.
func (s *plumberRequestService) checkRatable(ctx context.Context, actor auth.Identity, id uuid.UUID) error {
	pr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return translateRepoError(err, model.ErrRequestNotFound, "failed to rate plumber request")
	}
	if pr.UserID != actor.UserID {
		return model.ErrNotOwner
	}
	if s.opts.RatingRequiresCompletion && pr.Status != model.StatusCompleted {
		return model.ErrRequestIncomplete
	}
	return nil
}

// ListRequestsForUser returns a user's requests, newest first.
func (s *plumberRequestService) ListRequestsForUser(ctx context.Context, actor auth.Identity, userID int64) ([]model.PlumberRequest, error) {
	if !actor.CanAccessUser(userID) {
		return nil, model.ErrNotOwner
	}
	requests, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, model.PersistenceError("failed to list plumber requests", err)
	}
	return requests, nil
}

// ListAllRequests returns every request. Admin only.
func (s *plumberRequestService) ListAllRequests(ctx context.Context, actor auth.Identity) ([]model.PlumberRequest, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrAdminRequired
	}
	requests, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, model.PersistenceError("failed to list plumber requests", err)
	}
	return requests, nil
}
