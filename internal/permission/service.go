package permission

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/member-management/internal"
	permissionDatamodel "github.com/frahmantamala/member-management/internal/core/datamodel/permission"
	"github.com/frahmantamala/member-management/internal/core/events"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*permissionDatamodel.Permission, error)
	GetByCode(ctx context.Context, code string) (*permissionDatamodel.Permission, error)
	GetByModule(ctx context.Context, module string) ([]*permissionDatamodel.Permission, error)
	GetActive(ctx context.Context) ([]*permissionDatamodel.Permission, error)
	GetModules(ctx context.Context) ([]string, error)
	Create(ctx context.Context, p *permissionDatamodel.Permission) error
	Update(ctx context.Context, p *permissionDatamodel.Permission) error
	SetActive(ctx context.Context, code string, active bool) error
}

// ReconcileFailure describes one definition that could not be applied.
type ReconcileFailure struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type ReconcileResult struct {
	Added     int                `json:"added"`
	Updated   int                `json:"updated"`
	Unchanged int                `json:"unchanged"`
	Errors    int                `json:"errors"`
	Failures  []ReconcileFailure `json:"failures,omitempty"`
}

func (r *ReconcileResult) fail(code string, err error) {
	r.Errors++
	r.Failures = append(r.Failures, ReconcileFailure{Code: code, Error: err.Error()})
}

const DefaultSnapshotTTL = time.Minute

type snapshot struct {
	active   CodeSet
	known    CodeSet
	loadedAt time.Time
}

type Service struct {
	repo   RepositoryAPI
	bus    events.Publisher
	logger *slog.Logger

	snapshotTTL time.Duration
	mu          sync.RWMutex
	snap        *snapshot
	gen         uint64
	now         func() time.Time
}

func NewService(repo RepositoryAPI, bus events.Publisher, logger *slog.Logger) *Service {
	if bus == nil {
		bus = events.Nop{}
	}
	return &Service{
		repo:        repo,
		bus:         bus,
		logger:      logger,
		snapshotTTL: DefaultSnapshotTTL,
		now:         time.Now,
	}
}

// SetSnapshotTTL bounds how long the cached code sets are trusted before a
// reload. Zero disables expiry.
func (s *Service) SetSnapshotTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotTTL = d
}

// Reconcile applies catalog definitions to storage: inserts missing codes,
// rewrites drifted ones and never deletes.
func (s *Service) Reconcile(ctx context.Context, defs []Definition) (*ReconcileResult, error) {
	return s.reconcile(ctx, defs, "definitions")
}

// SyncFile loads the YAML catalog at path and reconciles it.
func (s *Service) SyncFile(ctx context.Context, path string) (*ReconcileResult, error) {
	defs, err := LoadCatalogFile(path)
	if err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	return s.reconcile(ctx, defs, path)
}

func (s *Service) reconcile(ctx context.Context, defs []Definition, source string) (*ReconcileResult, error) {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to load permissions", err)
	}

	existing := make(map[string]*Permission, len(rows))
	for _, row := range rows {
		existing[row.Code] = FromDataModel(row)
	}

	result := &ReconcileResult{}
	seen := make(map[string]struct{}, len(defs))

	for _, def := range defs {
		if err := def.Validate(); err != nil {
			result.fail(def.Code, err)
			continue
		}
		if _, dup := seen[def.Code]; dup {
			result.fail(def.Code, fmt.Errorf("%s: duplicate code in catalog", def.Code))
			continue
		}
		seen[def.Code] = struct{}{}

		current, ok := existing[def.Code]
		switch {
		case !ok:
			p := &Permission{
				Code:        def.Code,
				Name:        def.Name,
				Module:      def.Module,
				Action:      def.Action,
				Description: def.Description,
				IsActive:    true,
			}
			if err := s.repo.Create(ctx, ToDataModel(p)); err != nil {
				result.fail(def.Code, err)
				continue
			}
			result.Added++
		case def.driftsFrom(current):
			current.Name = def.Name
			current.Module = def.Module
			current.Action = def.Action
			current.Description = def.Description
			if err := s.repo.Update(ctx, ToDataModel(current)); err != nil {
				result.fail(def.Code, err)
				continue
			}
			result.Updated++
		default:
			result.Unchanged++
		}
	}

	s.Invalidate()

	s.logger.Info("permission catalog reconciled",
		"source", source,
		"added", result.Added,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"errors", result.Errors)

	evt := events.NewPermissionsSyncedEvent(result.Added, result.Updated, result.Unchanged, result.Errors, source)
	if err := s.bus.PublishSync(ctx, evt); err != nil {
		s.logger.Warn("permissions.synced subscribers failed", "error", err)
	}

	return result, nil
}

func (s *Service) ListAll(ctx context.Context) ([]*Permission, error) {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list permissions", err)
	}
	return fromDataModels(rows), nil
}

func (s *Service) ListActive(ctx context.Context) ([]*Permission, error) {
	rows, err := s.repo.GetActive(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list permissions", err)
	}
	return fromDataModels(rows), nil
}

func (s *Service) ListByModule(ctx context.Context, module string) ([]*Permission, error) {
	rows, err := s.repo.GetByModule(ctx, module)
	if err != nil {
		return nil, internal.NewInternalError("failed to list permissions", err)
	}
	return fromDataModels(rows), nil
}

func (s *Service) ListModules(ctx context.Context) ([]string, error) {
	modules, err := s.repo.GetModules(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list permission modules", err)
	}
	return modules, nil
}

// SetActive toggles enforcement of a code without touching role definitions.
func (s *Service) SetActive(ctx context.Context, code string, active bool, actorID *int64) (*Permission, error) {
	row, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, internal.NewInternalError("failed to load permission", err)
	}
	if row == nil {
		return nil, internal.ErrPermissionNotFound
	}

	if row.IsActive != active {
		if err := s.repo.SetActive(ctx, code, active); err != nil {
			return nil, internal.NewInternalError("failed to update permission", err)
		}
		row.IsActive = active
		s.Invalidate()

		if err := s.bus.PublishSync(ctx, events.NewPermissionToggledEvent(code, active, actorID)); err != nil {
			s.logger.Warn("permission.toggled subscribers failed", "error", err)
		}
	}

	return FromDataModel(row), nil
}

// ActiveCodes returns the set of codes that may be granted right now.
func (s *Service) ActiveCodes(ctx context.Context) (CodeSet, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.active, nil
}

// KnownCodes returns every catalogued code, active or not.
func (s *Service) KnownCodes(ctx context.Context) (CodeSet, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.known, nil
}

// Invalidate drops the cached code sets. A reload already in flight is not
// kept.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.snap = nil
	s.gen++
	s.mu.Unlock()
}

func (s *Service) load(ctx context.Context) (*snapshot, error) {
	s.mu.RLock()
	snap, ttl, gen := s.snap, s.snapshotTTL, s.gen
	s.mu.RUnlock()

	if snap != nil && (ttl == 0 || s.now().Sub(snap.loadedAt) < ttl) {
		return snap, nil
	}

	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to load permission catalog", err)
	}

	fresh := &snapshot{
		active:   make(CodeSet, len(rows)),
		known:    make(CodeSet, len(rows)),
		loadedAt: s.now(),
	}
	for _, row := range rows {
		fresh.known[row.Code] = struct{}{}
		if row.IsActive {
			fresh.active[row.Code] = struct{}{}
		}
	}

	s.mu.Lock()
	if s.gen == gen {
		s.snap = fresh
	}
	s.mu.Unlock()

	return fresh, nil
}
