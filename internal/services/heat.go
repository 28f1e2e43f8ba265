package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/gaterace/internal/errors"
	"github.com/abrezinsky/gaterace/internal/logger"
	"github.com/abrezinsky/gaterace/internal/models"
	"github.com/abrezinsky/gaterace/internal/race"
	"github.com/abrezinsky/gaterace/internal/repository"
)

// Broadcaster defines the interface for broadcasting messages to clients
type Broadcaster interface {
	BroadcastHeatStatus(heat models.Heat)
	BroadcastResults(heatID int, results []models.HeatResult)
	BroadcastStandings(categoryID int, stage models.Stage)
}

// HeatServiceRepository defines the repository methods needed by HeatService
type HeatServiceRepository interface {
	repository.CategoryRepository
	repository.RiderRepository
	repository.HeatRepository
	repository.ResultRepository
}

// HeatConfig carries the tunables of heat handling
type HeatConfig struct {
	BatchSize   int
	DNSPoint    int
	DQThreshold int
	// Rand drives the third-moto shuffle. Nil seeds a generator at random.
	Rand *rand.Rand
}

// HeatService handles heat lineups, results and lifecycle
type HeatService struct {
	log         logger.Logger
	repo        HeatServiceRepository
	settings    *SettingsService
	broadcaster Broadcaster
	cfg         HeatConfig
	aggregator  race.Aggregator

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewHeatService creates a new HeatService
func NewHeatService(log logger.Logger, repo HeatServiceRepository, settings *SettingsService, cfg HeatConfig) *HeatService {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = race.MaxThreeMotoRoster
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &HeatService{
		log:        log,
		repo:       repo,
		settings:   settings,
		cfg:        cfg,
		aggregator: newAggregator(cfg.DNSPoint, cfg.DQThreshold),
		rng:        rng,
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *HeatService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

func newAggregator(dnsPoint, dqThreshold int) race.Aggregator {
	agg := race.NewAggregator()
	if dnsPoint > 0 {
		agg.Scorer.DNSPoint = dnsPoint
	}
	if dqThreshold > 0 {
		agg.DQThreshold = dqThreshold
	}
	return agg
}

// BatchPlan describes the heats created for a set of batches
type BatchPlan struct {
	Batches      [][]int `json:"batches"`
	FirstBatch   int     `json:"first_batch"`
	HeatsCreated int     `json:"heats_created"`
}

// ResultEntry is one rider's submitted outcome
type ResultEntry struct {
	RiderID     int
	Status      models.ResultStatus
	FinishOrder *int
}

// SubmitOutcome is the state of a heat after a result submission
type SubmitOutcome struct {
	Heat     models.Heat         `json:"heat"`
	Results  []models.HeatResult `json:"results"`
	Complete bool                `json:"complete"`
}

// HeatLineup is a heat with its riders ordered by gate
type HeatLineup struct {
	Heat   models.Heat          `json:"heat"`
	Riders []models.RosterEntry `json:"riders"`
}

// BatchStandings is the aggregated table of one qualification batch
type BatchStandings struct {
	CategoryID int                 `json:"category_id"`
	Batch      int                 `json:"batch"`
	Complete   bool                `json:"complete"`
	Rows       []race.AggregateRow `json:"rows"`
}

// ListHeats returns a category's heats in running order
func (s *HeatService) ListHeats(ctx context.Context, categoryID int) ([]models.Heat, error) {
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}
	return s.repo.ListHeats(ctx, categoryID)
}

// GetHeat returns a heat by ID
func (s *HeatService) GetHeat(ctx context.Context, heatID int) (*models.Heat, error) {
	h, err := s.repo.GetHeat(ctx, heatID)
	if err != nil {
		return nil, notFound(err, ErrHeatNotFound)
	}
	return h, nil
}

// CreateBatches splits riders into batches and creates their qualification
// motos, then assigns gates. A zero batchSize uses the configured default.
func (s *HeatService) CreateBatches(ctx context.Context, categoryID int, riderIDs []int, batchSize int) (*BatchPlan, error) {
	if batchSize == 0 {
		batchSize = s.cfg.BatchSize
	}
	if batchSize < 4 || batchSize > race.MaxThreeMotoRoster {
		return nil, ErrInvalidBatchSize
	}
	if len(riderIDs) == 0 {
		return nil, ErrNoRiders
	}
	if dups := lo.FindDuplicates(riderIDs); len(dups) > 0 {
		return nil, errors.Validationf("rider %d selected more than once", dups[0])
	}
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}
	for _, id := range riderIDs {
		if _, err := s.repo.GetRider(ctx, id); err != nil {
			if err == repository.ErrNotFound {
				return nil, errors.Validationf("rider %d does not exist", id)
			}
			return nil, err
		}
	}

	if len(riderIDs) < race.MinBatchRoster {
		return nil, ErrTooFewRiders
	}
	chunks := race.Batches(riderIDs, batchSize)
	if smallest := len(chunks[len(chunks)-1]); smallest < race.MinBatchRoster {
		return nil, errors.Validationf("%d riders cannot be split into batches of %d to %d", len(riderIDs), race.MinBatchRoster, batchSize)
	}

	existing, err := s.repo.ListHeats(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	numbers, _ := qualificationBatches(existing)
	first := 1
	if len(numbers) > 0 {
		first = numbers[len(numbers)-1] + 1
	}

	plan := &BatchPlan{Batches: chunks, FirstBatch: first}
	motos := 0
	for _, c := range chunks {
		motos = max(motos, race.MotosPerBatch(len(c)))
	}
	// moto-major running order: every batch rides moto 1 before moto 2
	for moto := 1; moto <= motos; moto++ {
		for i, chunk := range chunks {
			if moto > race.MotosPerBatch(len(chunk)) {
				continue
			}
			ident := models.HeatIdent{Stage: models.StageQualification, Batch: first + i, Moto: moto}
			if _, err := s.repo.CreateHeat(ctx, models.Heat{
				CategoryID: categoryID, Name: race.HeatName(ident), Ident: ident, Status: models.HeatUpcoming,
			}, chunk); err != nil {
				return nil, err
			}
			plan.HeatsCreated++
		}
	}
	s.log.Info("Batches created", "category", categoryID, "batches", len(chunks), "heats", plan.HeatsCreated)

	if _, err := s.AssignGates(ctx, categoryID); err != nil {
		return nil, err
	}
	return plan, nil
}

// AssignGates fills missing gate assignments for every heat of a category.
// Heats that already have gates keep them. Returns the number of heats written.
func (s *HeatService) AssignGates(ctx context.Context, categoryID int) (int, error) {
	heats, err := s.ListHeats(ctx, categoryID)
	if err != nil {
		return 0, err
	}
	assigned := 0
	for _, h := range heats {
		moto := 1
		if h.Ident.Stage == models.StageQualification {
			moto = h.Ident.Moto
		}
		wrote, err := fillGates(ctx, s.repo, h.ID, func(roster []int) []int {
			s.rngMu.Lock()
			defer s.rngMu.Unlock()
			return race.Lineup(roster, moto, s.rng)
		})
		if err != nil {
			return assigned, err
		}
		if wrote {
			assigned++
		}
	}
	if assigned > 0 {
		s.log.Info("Gates assigned", "category", categoryID, "heats", assigned)
	}
	return assigned, nil
}

// Lineup returns a heat's riders ordered by gate; riders without a gate follow
// in arrival order.
func (s *HeatService) Lineup(ctx context.Context, heatID int) (*HeatLineup, error) {
	h, err := s.GetHeat(ctx, heatID)
	if err != nil {
		return nil, err
	}
	roster, err := s.repo.ListHeatRoster(ctx, heatID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(roster, func(a, b models.RosterEntry) int {
		return compareGates(a.Gate, b.Gate)
	})
	return &HeatLineup{Heat: *h, Riders: roster}, nil
}

// SubmitResults validates and records results for a heat. The heat moves to
// PROVISIONAL once every rider on its roster has a result.
func (s *HeatService) SubmitResults(ctx context.Context, heatID int, entries []ResultEntry) (*SubmitOutcome, error) {
	if len(entries) == 0 {
		return nil, ErrNoResults
	}
	h, err := s.GetHeat(ctx, heatID)
	if err != nil {
		return nil, err
	}
	if err := race.CheckEditable(h.Status); err != nil {
		return nil, errors.Lifecycle(err.Error())
	}

	roster, err := s.repo.ListHeatRoster(ctx, heatID)
	if err != nil {
		return nil, err
	}
	onRoster := lo.SliceToMap(roster, func(e models.RosterEntry) (int, bool) { return e.RiderID, true })

	submitted := make([]models.HeatResult, 0, len(entries))
	for _, e := range entries {
		if !onRoster[e.RiderID] {
			return nil, errors.Validationf("rider %d is not on the roster of heat %d", e.RiderID, heatID)
		}
		submitted = append(submitted, models.HeatResult{HeatID: heatID, RiderID: e.RiderID, Status: e.Status, FinishOrder: e.FinishOrder})
	}
	if dups := lo.FindDuplicates(lo.Map(submitted, func(r models.HeatResult, _ int) int { return r.RiderID })); len(dups) > 0 {
		return nil, errors.Validationf("rider %d submitted more than once", dups[0])
	}
	if err := race.ValidateSubmission(submitted); err != nil {
		return nil, errors.Validation(err.Error())
	}

	stored, err := s.repo.ListHeatResults(ctx, heatID)
	if err != nil {
		return nil, err
	}
	merged := lo.KeyBy(stored, func(r models.HeatResult) int { return r.RiderID })
	for _, r := range submitted {
		merged[r.RiderID] = r
	}
	all := lo.Values(merged)
	complete := len(merged) == len(roster)
	check := race.ValidateSubmission
	if complete {
		check = race.ValidateFinishOrders
	}
	if err := check(all); err != nil {
		return nil, errors.Validation(err.Error())
	}

	if err := s.repo.UpsertHeatResults(ctx, heatID, submitted); err != nil {
		return nil, err
	}
	s.log.Info("Results recorded", "heat", heatID, "count", len(submitted), "complete", complete)

	if complete && (h.Status == models.HeatUpcoming || h.Status == models.HeatLive) {
		if err := s.moveSystem(ctx, h, models.HeatProvisional); err != nil {
			return nil, err
		}
	}

	results, err := s.repo.ListHeatResults(ctx, heatID)
	if err != nil {
		return nil, err
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastResults(heatID, results)
	}
	return &SubmitOutcome{Heat: *h, Results: results, Complete: complete}, nil
}

// StartHeat moves an upcoming heat to LIVE
func (s *HeatService) StartHeat(ctx context.Context, heatID int) (*models.Heat, error) {
	h, err := s.GetHeat(ctx, heatID)
	if err != nil {
		return nil, err
	}
	if err := s.moveSystem(ctx, h, models.HeatLive); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *HeatService) moveSystem(ctx context.Context, h *models.Heat, to models.HeatStatus) error {
	if err := race.CheckSystemTransition(h.Status, to); err != nil {
		return errors.Lifecycle(err.Error())
	}
	return s.setStatus(ctx, h, to)
}

// Transition applies an operator status change (review, lock)
func (s *HeatService) Transition(ctx context.Context, heatID int, to models.HeatStatus) (*models.Heat, error) {
	h, err := s.GetHeat(ctx, heatID)
	if err != nil {
		return nil, err
	}
	if err := race.CheckTransition(h.Status, to); err != nil {
		return nil, errors.Lifecycle(err.Error())
	}
	if err := s.setStatus(ctx, h, to); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *HeatService) setStatus(ctx context.Context, h *models.Heat, to models.HeatStatus) error {
	if err := s.repo.SetHeatStatus(ctx, h.ID, to); err != nil {
		return notFound(err, ErrHeatNotFound)
	}
	s.log.Info("Heat status changed", "heat", h.ID, "from", h.Status, "to", to)
	h.Status = to
	if s.broadcaster != nil {
		s.broadcaster.BroadcastHeatStatus(*h)
	}
	return nil
}

// SetPublished toggles the published flag of a locked heat
func (s *HeatService) SetPublished(ctx context.Context, heatID int, published bool) (*models.Heat, error) {
	h, err := s.GetHeat(ctx, heatID)
	if err != nil {
		return nil, err
	}
	if err := race.CheckPublishable(h.Status); err != nil {
		return nil, errors.Lifecycle(err.Error())
	}
	if err := s.repo.SetHeatPublished(ctx, heatID, published); err != nil {
		return nil, notFound(err, ErrHeatNotFound)
	}
	h.Published = published
	if s.broadcaster != nil {
		s.broadcaster.BroadcastHeatStatus(*h)
	}
	return h, nil
}

// AddPenalty records a pending penalty against a rider in a heat
func (s *HeatService) AddPenalty(ctx context.Context, heatID, riderID, points int, reason string) (int64, error) {
	if points <= 0 {
		return 0, ErrInvalidPenalty
	}
	h, err := s.GetHeat(ctx, heatID)
	if err != nil {
		return 0, err
	}
	if err := race.CheckEditable(h.Status); err != nil {
		return 0, errors.Lifecycle(err.Error())
	}
	roster, err := s.repo.ListHeatRoster(ctx, heatID)
	if err != nil {
		return 0, err
	}
	if !lo.ContainsBy(roster, func(e models.RosterEntry) bool { return e.RiderID == riderID }) {
		return 0, errors.Validationf("rider %d is not on the roster of heat %d", riderID, heatID)
	}
	id, err := s.repo.CreatePenalty(ctx, models.Penalty{HeatID: heatID, RiderID: riderID, Points: points, Reason: reason})
	if err != nil {
		return 0, err
	}
	s.log.Info("Penalty recorded", "heat", heatID, "rider", riderID, "points", points)
	return id, nil
}

// ApprovePenalty approves a penalty so it counts toward the rider's total
func (s *HeatService) ApprovePenalty(ctx context.Context, penaltyID int) error {
	p, err := s.repo.GetPenalty(ctx, penaltyID)
	if err != nil {
		return notFound(err, ErrPenaltyNotFound)
	}
	h, err := s.GetHeat(ctx, p.HeatID)
	if err != nil {
		return err
	}
	if err := race.CheckEditable(h.Status); err != nil {
		return errors.Lifecycle(err.Error())
	}
	if err := s.repo.ApprovePenalty(ctx, penaltyID); err != nil {
		return notFound(err, ErrPenaltyNotFound)
	}
	s.log.Info("Penalty approved", "penalty", penaltyID, "heat", p.HeatID, "rider", p.RiderID)
	return nil
}

// ListPenalties returns the penalties recorded in a heat
func (s *HeatService) ListPenalties(ctx context.Context, heatID int) ([]models.Penalty, error) {
	if _, err := s.GetHeat(ctx, heatID); err != nil {
		return nil, err
	}
	return s.repo.ListPenalties(ctx, heatID)
}

// BatchStandings aggregates one qualification batch for display
func (s *HeatService) BatchStandings(ctx context.Context, categoryID, batchNumber int) (*BatchStandings, error) {
	heats, err := s.ListHeats(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	_, batches := qualificationBatches(heats)
	bh, ok := batches[batchNumber]
	if !ok {
		return nil, errors.NotFoundf("batch %d not found", batchNumber)
	}
	b, err := loadBatch(ctx, s.repo, batchNumber, bh)
	if err != nil {
		return nil, err
	}
	return &BatchStandings{
		CategoryID: categoryID,
		Batch:      batchNumber,
		Complete:   b.complete(),
		Rows:       s.aggregator.Aggregate(b.Riders, b.Input),
	}, nil
}

// HeatQRCode renders a PNG QR code linking to a heat's lineup
func (s *HeatService) HeatQRCode(ctx context.Context, heatID int) ([]byte, error) {
	if _, err := s.GetHeat(ctx, heatID); err != nil {
		return nil, err
	}
	baseURL, err := s.settings.GetBaseURL(ctx)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		return nil, ErrBaseURLNotConfigured
	}
	lineupURL := fmt.Sprintf("%s/api/heats/%d/lineup", strings.TrimSuffix(baseURL, "/"), heatID)
	return qrcode.Encode(lineupURL, qrcode.Medium, 256)
}

// compareGates orders nil after every value
func compareGates(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return *a - *b
}
