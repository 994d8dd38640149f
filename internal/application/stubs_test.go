package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/parish-roster/internal/persistence"
	"github.com/example/parish-roster/internal/scheduler"
)

// June 2024 starts on a Saturday; with the default ten day window it opens on
// 2024-05-22 and closes at the end of 2024-06-30.
var (
	juneOpen   = time.Date(2024, time.May, 25, 12, 0, 0, 0, time.UTC)
	juneClosed = time.Date(2024, time.July, 3, 12, 0, 0, 0, time.UTC)
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func sundayMass(id string, maxAllowed int) scheduler.RecurringSlot {
	return scheduler.RecurringSlot{
		ID:          id,
		Weekday:     time.Sunday,
		Time:        scheduler.NewTimeOfDay(9, 0),
		MinRequired: 1,
		MaxAllowed:  maxAllowed,
		Active:      true,
	}
}

func date(t testingT, value string) scheduler.Date {
	t.Helper()
	d, err := scheduler.ParseDate(value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return d
}

type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

type ministerRepoStub struct {
	mu        sync.Mutex
	ministers map[string]Minister
	createErr error
	listErr   error
	deleteErr error
}

func newMinisterRepoStub(ministers ...Minister) *ministerRepoStub {
	stub := &ministerRepoStub{ministers: make(map[string]Minister)}
	for _, m := range ministers {
		stub.ministers[m.ID] = m
	}
	return stub
}

func (r *ministerRepoStub) CreateMinister(ctx context.Context, minister Minister) (Minister, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return Minister{}, r.createErr
	}
	r.ministers[minister.ID] = minister
	return minister, nil
}

func (r *ministerRepoStub) GetMinister(ctx context.Context, id string) (Minister, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.ministers[id]
	if !ok {
		return Minister{}, persistence.ErrNotFound
	}
	return m, nil
}

func (r *ministerRepoStub) ListMinisters(ctx context.Context) ([]Minister, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]Minister, 0, len(r.ministers))
	for _, m := range r.ministers {
		out = append(out, m)
	}
	return out, nil
}

func (r *ministerRepoStub) DeleteMinister(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.ministers[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.ministers, id)
	return nil
}

type catalogRepoStub struct {
	mu      sync.Mutex
	slots   map[string]scheduler.RecurringSlot
	extras  map[string]scheduler.ExtraEvent
	listErr error
}

func newCatalogRepoStub(slots []scheduler.RecurringSlot, extras []scheduler.ExtraEvent) *catalogRepoStub {
	stub := &catalogRepoStub{
		slots:  make(map[string]scheduler.RecurringSlot),
		extras: make(map[string]scheduler.ExtraEvent),
	}
	for _, slot := range slots {
		stub.slots[slot.ID] = slot
	}
	for _, extra := range extras {
		stub.extras[extra.ID] = extra
	}
	return stub
}

func (r *catalogRepoStub) CreateSlot(ctx context.Context, slot scheduler.RecurringSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[slot.ID] = slot
	return nil
}

func (r *catalogRepoStub) UpdateSlot(ctx context.Context, slot scheduler.RecurringSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[slot.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.slots[slot.ID] = slot
	return nil
}

func (r *catalogRepoStub) GetSlot(ctx context.Context, id string) (scheduler.RecurringSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[id]
	if !ok {
		return scheduler.RecurringSlot{}, persistence.ErrNotFound
	}
	return slot, nil
}

func (r *catalogRepoStub) ListSlots(ctx context.Context) ([]scheduler.RecurringSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]scheduler.RecurringSlot, 0, len(r.slots))
	for _, slot := range r.slots {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *catalogRepoStub) CreateExtra(ctx context.Context, extra scheduler.ExtraEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extras[extra.ID] = extra
	return nil
}

func (r *catalogRepoStub) UpdateExtra(ctx context.Context, extra scheduler.ExtraEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.extras[extra.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.extras[extra.ID] = extra
	return nil
}

func (r *catalogRepoStub) GetExtra(ctx context.Context, id string) (scheduler.ExtraEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	extra, ok := r.extras[id]
	if !ok {
		return scheduler.ExtraEvent{}, persistence.ErrNotFound
	}
	return extra, nil
}

func (r *catalogRepoStub) ListExtras(ctx context.Context, from, to scheduler.Date) ([]scheduler.ExtraEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]scheduler.ExtraEvent, 0, len(r.extras))
	for _, extra := range r.extras {
		if inRange(extra.Date, from, to) {
			out = append(out, extra)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func inRange(d, from, to scheduler.Date) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && to.Before(d) {
		return false
	}
	return true
}

type blockRepoStub struct {
	mu     sync.Mutex
	blocks map[string]scheduler.BlockedMass
}

func newBlockRepoStub(blocks ...scheduler.BlockedMass) *blockRepoStub {
	stub := &blockRepoStub{blocks: make(map[string]scheduler.BlockedMass)}
	for _, block := range blocks {
		stub.blocks[block.ID] = block
	}
	return stub
}

func (r *blockRepoStub) CreateBlock(ctx context.Context, block scheduler.BlockedMass) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks[block.ID] = block
	return nil
}

func (r *blockRepoStub) UpdateBlock(ctx context.Context, block scheduler.BlockedMass) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blocks[block.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.blocks[block.ID] = block
	return nil
}

func (r *blockRepoStub) GetBlock(ctx context.Context, id string) (scheduler.BlockedMass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	block, ok := r.blocks[id]
	if !ok {
		return scheduler.BlockedMass{}, persistence.ErrNotFound
	}
	return block, nil
}

func (r *blockRepoStub) DeleteBlock(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blocks[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.blocks, id)
	return nil
}

func (r *blockRepoStub) ListBlocks(ctx context.Context, from, to scheduler.Date) ([]scheduler.BlockedMass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]scheduler.BlockedMass, 0, len(r.blocks))
	for _, block := range r.blocks {
		if inRange(block.Date, from, to) {
			out = append(out, block)
		}
	}
	return out, nil
}

type windowRepoStub struct {
	mu        sync.Mutex
	configs   []WindowSettings
	overrides map[string]scheduler.Override
	latestErr error
}

func newWindowRepoStub() *windowRepoStub {
	return &windowRepoStub{overrides: make(map[string]scheduler.Override)}
}

func (r *windowRepoStub) LatestWindowConfig(ctx context.Context) (WindowSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latestErr != nil {
		return WindowSettings{}, r.latestErr
	}
	if len(r.configs) == 0 {
		return WindowSettings{}, persistence.ErrNotFound
	}
	return r.configs[len(r.configs)-1], nil
}

func (r *windowRepoStub) AppendWindowConfig(ctx context.Context, settings WindowSettings) (WindowSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	settings.Sequence = int64(len(r.configs) + 1)
	r.configs = append(r.configs, settings)
	return settings, nil
}

func (r *windowRepoStub) ListOverrides(ctx context.Context, year int, month time.Month) ([]scheduler.Override, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []scheduler.Override
	for _, override := range r.overrides {
		if year == 0 || (override.Year == year && override.Month == month) {
			out = append(out, override)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenFrom.After(out[j].OpenFrom) })
	return out, nil
}

func (r *windowRepoStub) CreateOverride(ctx context.Context, override scheduler.Override) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[override.ID] = override
	return nil
}

func (r *windowRepoStub) DeleteOverride(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.overrides[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.overrides, id)
	return nil
}

type selectionRow struct {
	ministerID string
	target     scheduler.Target
}

// selectionRepoStub keeps committed selections in memory and applies commits
// the same way the SQLite store does: redundant changes are skipped and the
// remaining ones are checked by reserve against live counts.
type selectionRepoStub struct {
	mu          sync.Mutex
	rows        map[selectionRow]struct{}
	commitCalls int
	commitErr   error
	loadErr     error
	countErr    error
	reconciled  int
	summaries   []SelectionCount
	names       map[string]string
	listErr     error
}

func newSelectionRepoStub() *selectionRepoStub {
	return &selectionRepoStub{rows: make(map[selectionRow]struct{})}
}

func (r *selectionRepoStub) seed(ministerID string, targets ...scheduler.Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, target := range targets {
		r.rows[selectionRow{ministerID: ministerID, target: target}] = struct{}{}
	}
}

func (r *selectionRepoStub) count(target scheduler.Target) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for row := range r.rows {
		if row.target == target {
			n++
		}
	}
	return n
}

func (r *selectionRepoStub) LoadSelections(ctx context.Context, ministerID string, from, to scheduler.Date) (scheduler.SlotSet, scheduler.ExtraSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return scheduler.SlotSet{}, scheduler.ExtraSet{}, r.loadErr
	}
	var (
		keys []scheduler.SlotKey
		ids  []string
	)
	for row := range r.rows {
		if row.ministerID != ministerID {
			continue
		}
		if row.target.Kind == scheduler.TargetExtra {
			ids = append(ids, row.target.ExtraID)
			continue
		}
		if inRange(row.target.Date, from, to) {
			keys = append(keys, scheduler.SlotKey{Date: row.target.Date, SlotID: row.target.SlotID})
		}
	}
	return scheduler.NewSlotSet(keys...), scheduler.NewExtraSet(ids...), nil
}

func (r *selectionRepoStub) CommitSelections(ctx context.Context, ministerID string, changes []scheduler.SlotChange, committedAt time.Time, reserve ReserveFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitCalls++
	if r.commitErr != nil {
		return r.commitErr
	}

	var effective []scheduler.SlotChange
	for _, change := range changes {
		_, exists := r.rows[selectionRow{ministerID: ministerID, target: change.Target}]
		if change.Insert() != exists {
			effective = append(effective, change)
		}
	}
	if len(effective) == 0 {
		return nil
	}

	counts := make(map[scheduler.Target]int)
	for _, target := range scheduler.ChangedTargets(effective) {
		for row := range r.rows {
			if row.target == target {
				counts[target]++
			}
		}
	}
	if _, err := reserve(effective, counts); err != nil {
		return err
	}

	for _, change := range effective {
		row := selectionRow{ministerID: ministerID, target: change.Target}
		if change.Insert() {
			r.rows[row] = struct{}{}
		} else {
			delete(r.rows, row)
		}
	}
	return nil
}

func (r *selectionRepoStub) CountSelections(ctx context.Context, from, to scheduler.Date) (map[scheduler.Target]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return nil, r.countErr
	}
	counts := make(map[scheduler.Target]int)
	for row := range r.rows {
		counts[row.target]++
	}
	return counts, nil
}

func (r *selectionRepoStub) SummarizeMinisters(ctx context.Context, from, to scheduler.Date) ([]SelectionCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SelectionCount(nil), r.summaries...), nil
}

func (r *selectionRepoStub) ListAvailable(ctx context.Context, from, to scheduler.Date) ([]AvailableMinister, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var available []AvailableMinister
	for row := range r.rows {
		if row.target.Kind == scheduler.TargetSlot && (row.target.Date.Before(from) || to.Before(row.target.Date)) {
			continue
		}
		available = append(available, AvailableMinister{Target: row.target, MinisterID: row.ministerID, Name: r.names[row.ministerID]})
	}
	return available, nil
}

func (r *selectionRepoStub) ReconcileOccupancy(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr != nil {
		return 0, r.commitErr
	}
	return r.reconciled, nil
}

type publisherStub struct {
	mu     sync.Mutex
	err    error
	keys   []string
	events []any
}

func (p *publisherStub) PublishJSON(ctx context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.events = append(p.events, v)
	return nil
}

// availabilityHarness wires an AvailabilityService over in-memory stubs.
type availabilityHarness struct {
	ministers  *ministerRepoStub
	catalog    *catalogRepoStub
	blocks     *blockRepoStub
	window     *windowRepoStub
	selections *selectionRepoStub
	publisher  *publisherStub
	clock      *time.Time
	service    *AvailabilityService
	commits    *CommitCoordinator
}

func newAvailabilityHarness(t testingT, now time.Time, slots ...scheduler.RecurringSlot) *availabilityHarness {
	t.Helper()

	h := &availabilityHarness{
		ministers: newMinisterRepoStub(
			Minister{ID: "admin", Name: "Ana", IsAdmin: true},
			Minister{ID: "m1", Name: "Bruno"},
			Minister{ID: "m2", Name: "Carla"},
			Minister{ID: "m3", Name: "Davi"},
		),
		catalog:    newCatalogRepoStub(slots, nil),
		blocks:     newBlockRepoStub(),
		window:     newWindowRepoStub(),
		selections: newSelectionRepoStub(),
		publisher:  &publisherStub{},
		clock:      &now,
	}
	clock := func() time.Time { return *h.clock }

	window := NewWindowService(h.window, WindowServiceConfig{Defaults: scheduler.DefaultWindowConfig()}, sequentialIDs("ovr"), clock)
	loader := NewSnapshotLoader(h.catalog, h.blocks, window)
	h.commits = NewCommitCoordinator(h.selections, loader, h.publisher, time.Second, clock, nil)

	svc, err := NewAvailabilityService(AvailabilityDependencies{
		Loader:      loader,
		Selections:  h.selections,
		Ministers:   h.ministers,
		Commits:     h.commits,
		IDGenerator: sequentialIDs("draft"),
		Now:         clock,
	})
	if err != nil {
		t.Fatalf("NewAvailabilityService: %v", err)
	}
	h.service = svc
	return h
}
