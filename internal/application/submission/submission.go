package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hilthontt/civicreport/internal/application/assignment"
	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/infrastructure/metrics"
	"github.com/hilthontt/civicreport/internal/infrastructure/profanity"
	"github.com/hilthontt/civicreport/internal/infrastructure/ratelimiter"
)

const (
	MaxDescriptionLength = 2000
	MaxCustomIssueLength = 120

	DefaultEnrichmentTimeout = 10 * time.Second

	quotaRefundTimeout = 2 * time.Second
)

// Enrichment step names, used as log and metric labels.
const (
	StepLocation   = "location"
	StepImage      = "image"
	StepAudio      = "audio"
	StepAssignment = "assignment"
	StepPriority   = "priority"
)

// Input is what the client sent. Media bytes are uploaded during
// enrichment, never stored on the report.
type Input struct {
	IssueType   string
	Description string
	CustomIssue string
	Location    *domain.Location
	Image       *domain.Media
	Audio       *domain.Media
	ClientIP    string
}

// RateLimitedError carries the time until the reporter may submit again.
type RateLimitedError struct {
	RetryAfter time.Duration
	Limit      int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: %d reports per day", domain.ErrRateLimited, e.Limit)
}

func (e *RateLimitedError) Unwrap() error {
	return domain.ErrRateLimited
}

type Resolver interface {
	ResolveDepartment(ctx context.Context, issueType domain.IssueType) (assignment.Resolution, error)
}

type Options struct {
	EnrichmentTimeout time.Duration
	DefaultPriority   domain.Priority
}

type Dependencies struct {
	Reports    domain.ReportRepository
	Resolver   Resolver
	Locator    domain.Locator
	Media      domain.MediaStore
	Classifier domain.Classifier
	Quota      *ratelimiter.Quota
	Filter     *profanity.ProfanityFilter
	Publisher  domain.EventPublisher
	Metrics    *metrics.Metrics
	Logger     logging.Logger
	Now        func() time.Time
}

type UseCase interface {
	Submit(ctx context.Context, session *domain.Session, in Input) (*domain.Report, error)
}

type useCase struct {
	Dependencies
	opts Options
}

func NewUseCase(deps Dependencies, opts Options) UseCase {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Filter == nil {
		deps.Filter = profanity.NewProfanityFilter()
	}
	if opts.EnrichmentTimeout <= 0 {
		opts.EnrichmentTimeout = DefaultEnrichmentTimeout
	}
	if !opts.DefaultPriority.Valid() {
		opts.DefaultPriority = domain.PriorityNotSpecified
	}
	return &useCase{Dependencies: deps, opts: opts}
}

func (uc *useCase) Submit(ctx context.Context, session *domain.Session, in Input) (*domain.Report, error) {
	if err := session.Require(); err != nil {
		return nil, err
	}

	issueType, err := domain.ParseIssueType(in.IssueType)
	if err != nil {
		return nil, err
	}
	category, _ := domain.LookupCategory(issueType)

	description := strings.TrimSpace(in.Description)
	custom := strings.TrimSpace(in.CustomIssue)
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return nil, fmt.Errorf("%w: description exceeds %d characters", domain.ErrInvalidReport, MaxDescriptionLength)
	}
	if utf8.RuneCountInString(custom) > MaxCustomIssueLength {
		return nil, fmt.Errorf("%w: custom issue exceeds %d characters", domain.ErrInvalidReport, MaxCustomIssueLength)
	}
	if issueType == domain.IssueOthers && custom == "" && description == "" {
		return nil, fmt.Errorf("%w: describe the issue when choosing other", domain.ErrInvalidReport)
	}
	if in.Location != nil && !in.Location.Valid() {
		return nil, fmt.Errorf("%w: location out of range", domain.ErrInvalidReport)
	}

	description, _ = uc.Filter.Mask(description)
	custom, _ = uc.Filter.Mask(custom)

	if err := uc.consumeQuota(ctx, session); err != nil {
		return nil, err
	}

	enriched := uc.enrich(ctx, session, in, category, description)

	report, err := domain.NewReport(domain.NewReportParams{
		ReporterID:   session.UserID,
		Description:  description,
		IssueType:    issueType,
		CustomIssue:  custom,
		ImageURL:     enriched.imageURL,
		AudioURL:     enriched.audioURL,
		Location:     enriched.location,
		AssignedDept: enriched.resolution.Dept,
		AssignedTo:   enriched.resolution.SupervisorID,
		Priority:     enriched.priority,
	})
	if err != nil {
		uc.refundQuota(session)
		return nil, err
	}

	if err := uc.Reports.Create(ctx, report); err != nil {
		uc.refundQuota(session)
		uc.Logger.Error(logging.MongoDB, logging.Insert, "failed to persist report", map[logging.ExtraKey]any{
			logging.ReportID:     report.ID,
			logging.UserID:       session.UserID,
			logging.ErrorMessage: err.Error(),
		})
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	if uc.Metrics != nil {
		uc.Metrics.ReportsSubmitted.WithLabelValues(string(report.IssueType)).Inc()
	}
	uc.Logger.Info(logging.Lifecycle, logging.Insert, "report submitted", map[logging.ExtraKey]any{
		logging.ReportID: report.ID,
		logging.UserID:   session.UserID,
	})

	if uc.Publisher != nil {
		if err := uc.Publisher.Publish(ctx, domain.NewReportEvent(domain.EventReportSubmitted, session.UserID, report, nil)); err != nil {
			uc.Logger.Error(logging.RabbitMQ, logging.Publish, "failed to publish report event", map[logging.ExtraKey]any{
				logging.ReportID:     report.ID,
				logging.EventType:    domain.EventReportSubmitted,
				logging.ErrorMessage: err.Error(),
			})
		}
	}
	return report, nil
}

// refundQuota gives back the slot taken by a submission that was never
// stored. It runs detached from the request so a cancelled client still
// gets the refund.
func (uc *useCase) refundQuota(session *domain.Session) {
	if uc.Quota == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), quotaRefundTimeout)
	defer cancel()

	if err := uc.Quota.Refund(ctx, session.UserID); err != nil {
		uc.Logger.Warn(logging.Redis, logging.RateLimiting, "submission quota refund failed", map[logging.ExtraKey]any{
			logging.UserID:       session.UserID,
			logging.ErrorMessage: err.Error(),
		})
	}
}

// consumeQuota fails open: a broken limiter store never blocks reporting.
func (uc *useCase) consumeQuota(ctx context.Context, session *domain.Session) error {
	if uc.Quota == nil {
		return nil
	}
	res, err := uc.Quota.Consume(ctx, session.UserID)
	if err != nil {
		uc.Logger.Warn(logging.Redis, logging.RateLimiting, "submission quota unavailable", map[logging.ExtraKey]any{
			logging.UserID:       session.UserID,
			logging.ErrorMessage: err.Error(),
		})
		return nil
	}
	if !res.Allowed {
		uc.Logger.Info(logging.Lifecycle, logging.RateLimiting, "submission quota exhausted", map[logging.ExtraKey]any{
			logging.UserID: session.UserID,
		})
		return &RateLimitedError{RetryAfter: res.RetryAfter, Limit: uc.Quota.Limit()}
	}
	return nil
}

type enrichment struct {
	location   *domain.Location
	imageURL   *string
	audioURL   *string
	resolution assignment.Resolution
	priority   domain.Priority
}

// enrich runs every step concurrently. Steps never fail the submission:
// each one falls back to its default and the failure is logged.
func (uc *useCase) enrich(ctx context.Context, session *domain.Session, in Input, category domain.Category, description string) enrichment {
	out := enrichment{
		location:   in.Location,
		resolution: assignment.Resolution{Dept: category.Department},
		priority:   uc.opts.DefaultPriority,
	}

	var wg sync.WaitGroup
	run := func(step string, fn func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stepCtx, cancel := context.WithTimeout(ctx, uc.opts.EnrichmentTimeout)
			defer cancel()
			if err := fn(stepCtx); err != nil {
				uc.enrichmentFailed(session, step, err)
			}
		}()
	}

	if in.Location == nil && uc.Locator != nil && in.ClientIP != "" {
		run(StepLocation, func(ctx context.Context) error {
			loc, err := uc.Locator.Locate(ctx, in.ClientIP)
			if err != nil {
				return err
			}
			if loc == nil || !loc.Valid() {
				return errors.New("locator returned no usable position")
			}
			out.location = loc
			return nil
		})
	}

	if !in.Image.Empty() && uc.Media != nil {
		run(StepImage, func(ctx context.Context) error {
			media := *in.Image
			media.Kind = domain.MediaImage
			url, err := uc.Media.Upload(ctx, media)
			if err != nil {
				return err
			}
			out.imageURL = domain.StringPtr(url)
			return nil
		})
	}

	if !in.Audio.Empty() && uc.Media != nil {
		run(StepAudio, func(ctx context.Context) error {
			media := *in.Audio
			media.Kind = domain.MediaAudio
			url, err := uc.Media.Upload(ctx, media)
			if err != nil {
				return err
			}
			out.audioURL = domain.StringPtr(url)
			return nil
		})
	}

	if uc.Resolver != nil {
		run(StepAssignment, func(ctx context.Context) error {
			res, err := uc.Resolver.ResolveDepartment(ctx, category.Key)
			if err != nil {
				return err
			}
			if res.Dept != "" {
				out.resolution = res
			}
			return nil
		})
	}

	if uc.Classifier != nil && description != "" {
		run(StepPriority, func(ctx context.Context) error {
			raw, err := uc.Classifier.Classify(ctx, description, category)
			if err != nil {
				return err
			}
			p, err := domain.ParsePriority(raw)
			if err != nil {
				return fmt.Errorf("%w: %q", err, raw)
			}
			out.priority = p
			return nil
		})
	}

	wg.Wait()
	return out
}

func (uc *useCase) enrichmentFailed(session *domain.Session, step string, err error) {
	if uc.Metrics != nil {
		uc.Metrics.EnrichmentFailures.WithLabelValues(step).Inc()
	}
	uc.Logger.Warn(logging.Enrichment, subCategoryFor(step), "enrichment step fell back to default", map[logging.ExtraKey]any{
		logging.Step:         step,
		logging.UserID:       session.UserID,
		logging.ErrorMessage: fmt.Errorf("%w: %w", domain.ErrEnrichmentFailed, err).Error(),
	})
}

func subCategoryFor(step string) logging.SubCategory {
	switch step {
	case StepLocation:
		return logging.Location
	case StepImage, StepAudio:
		return logging.MediaUpload
	case StepAssignment:
		return logging.Assignment
	case StepPriority:
		return logging.Classification
	}
	return logging.ExternalService
}
