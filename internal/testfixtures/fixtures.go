package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/parish-roster/internal/application"
	"github.com/example/parish-roster/internal/scheduler"
)

var (
	ministerCounter uint64
	slotCounter     uint64
	extraCounter    uint64
	blockCounter    uint64
)

// referenceTime falls inside the automatic window for June 2024 with the
// default configuration.
var referenceTime = time.Date(2024, time.May, 25, 12, 0, 0, 0, time.UTC)

// ReferenceTime returns the baseline instant used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceMonth is the month that ReferenceTime may edit.
func ReferenceMonth() (int, time.Month) {
	return 2024, time.June
}

// MustDate parses a YYYY-MM-DD literal.
func MustDate(value string) scheduler.Date {
	d, err := scheduler.ParseDate(value)
	if err != nil {
		panic(err)
	}
	return d
}

// MustTime parses an HH:MM literal.
func MustTime(value string) scheduler.TimeOfDay {
	t, err := scheduler.ParseTimeOfDay(value)
	if err != nil {
		panic(err)
	}
	return t
}

// MinisterFixture is a deterministic minister record.
type MinisterFixture struct {
	ID        string
	Name      string
	IsAdmin   bool
	CreatedAt time.Time
}

type MinisterOption func(*MinisterFixture)

func NewMinisterFixture(opts ...MinisterOption) MinisterFixture {
	idx := atomic.AddUint64(&ministerCounter, 1)
	fixture := MinisterFixture{
		ID:        fmt.Sprintf("minister-%03d", idx),
		Name:      fmt.Sprintf("Ministro %03d", idx),
		CreatedAt: referenceTime.Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithMinisterID(id string) MinisterOption {
	return func(f *MinisterFixture) { f.ID = id }
}

func WithMinisterName(name string) MinisterOption {
	return func(f *MinisterFixture) { f.Name = name }
}

func AsAdmin() MinisterOption {
	return func(f *MinisterFixture) { f.IsAdmin = true }
}

func (f MinisterFixture) Application() application.Minister {
	return application.Minister{
		ID:        f.ID,
		Name:      f.Name,
		IsAdmin:   f.IsAdmin,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

func (f MinisterFixture) Principal() application.Principal {
	return application.Principal{MinisterID: f.ID, IsAdmin: f.IsAdmin}
}

// SlotFixture is a weekly mass. The default is Sunday 09:00 for two to four ministers.
type SlotFixture struct {
	ID          string
	Weekday     time.Weekday
	Time        string
	MinRequired int
	MaxAllowed  int
	Inactive    bool
}

type SlotOption func(*SlotFixture)

func NewSlotFixture(opts ...SlotOption) SlotFixture {
	idx := atomic.AddUint64(&slotCounter, 1)
	fixture := SlotFixture{
		ID:          fmt.Sprintf("slot-%03d", idx),
		Weekday:     time.Sunday,
		Time:        "09:00",
		MinRequired: 2,
		MaxAllowed:  4,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithSlotID(id string) SlotOption {
	return func(f *SlotFixture) { f.ID = id }
}

func WithSlotWhen(weekday time.Weekday, at string) SlotOption {
	return func(f *SlotFixture) {
		f.Weekday = weekday
		f.Time = at
	}
}

func WithSlotCapacity(minRequired, maxAllowed int) SlotOption {
	return func(f *SlotFixture) {
		f.MinRequired = minRequired
		f.MaxAllowed = maxAllowed
	}
}

func InactiveSlot() SlotOption {
	return func(f *SlotFixture) { f.Inactive = true }
}

func (f SlotFixture) Scheduler() scheduler.RecurringSlot {
	return scheduler.RecurringSlot{
		ID:          f.ID,
		Weekday:     f.Weekday,
		Time:        MustTime(f.Time),
		MinRequired: f.MinRequired,
		MaxAllowed:  f.MaxAllowed,
		Active:      !f.Inactive,
	}
}

func (f SlotFixture) Input() application.SlotInput {
	active := !f.Inactive
	return application.SlotInput{
		Weekday:     int(f.Weekday),
		Time:        f.Time,
		MinRequired: f.MinRequired,
		MaxAllowed:  f.MaxAllowed,
		Active:      &active,
	}
}

// ExtraFixture is a one-off mass inside the reference month.
type ExtraFixture struct {
	ID          string
	Date        string
	Time        string
	Title       string
	MinRequired int
	MaxAllowed  int
	Inactive    bool
}

type ExtraOption func(*ExtraFixture)

func NewExtraFixture(opts ...ExtraOption) ExtraFixture {
	idx := atomic.AddUint64(&extraCounter, 1)
	fixture := ExtraFixture{
		ID:          fmt.Sprintf("extra-%03d", idx),
		Date:        "2024-06-13",
		Time:        "19:30",
		Title:       "Santo Antônio",
		MinRequired: 1,
		MaxAllowed:  3,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithExtraID(id string) ExtraOption {
	return func(f *ExtraFixture) { f.ID = id }
}

func WithExtraWhen(date, at string) ExtraOption {
	return func(f *ExtraFixture) {
		f.Date = date
		f.Time = at
	}
}

func WithExtraCapacity(minRequired, maxAllowed int) ExtraOption {
	return func(f *ExtraFixture) {
		f.MinRequired = minRequired
		f.MaxAllowed = maxAllowed
	}
}

func (f ExtraFixture) Scheduler() scheduler.ExtraEvent {
	return scheduler.ExtraEvent{
		ID:          f.ID,
		Date:        MustDate(f.Date),
		Time:        MustTime(f.Time),
		Title:       f.Title,
		MinRequired: f.MinRequired,
		MaxAllowed:  f.MaxAllowed,
		Active:      !f.Inactive,
	}
}

func (f ExtraFixture) Input() application.ExtraInput {
	active := !f.Inactive
	return application.ExtraInput{
		Date:        f.Date,
		Time:        f.Time,
		Title:       f.Title,
		MinRequired: f.MinRequired,
		MaxAllowed:  f.MaxAllowed,
		Active:      &active,
	}
}

// BlockFixture blocks a whole day unless times are given.
type BlockFixture struct {
	ID     string
	Date   string
	Times  []string
	Reason string
}

type BlockOption func(*BlockFixture)

func NewBlockFixture(opts ...BlockOption) BlockFixture {
	idx := atomic.AddUint64(&blockCounter, 1)
	fixture := BlockFixture{
		ID:     fmt.Sprintf("block-%03d", idx),
		Date:   "2024-06-23",
		Reason: "Festa paroquial",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithBlockID(id string) BlockOption {
	return func(f *BlockFixture) { f.ID = id }
}

func WithBlockDate(date string) BlockOption {
	return func(f *BlockFixture) { f.Date = date }
}

func WithBlockTimes(times ...string) BlockOption {
	return func(f *BlockFixture) { f.Times = times }
}

func WithBlockReason(reason string) BlockOption {
	return func(f *BlockFixture) { f.Reason = reason }
}

func (f BlockFixture) Scheduler() scheduler.BlockedMass {
	block := scheduler.BlockedMass{ID: f.ID, Date: MustDate(f.Date), Reason: f.Reason}
	if len(f.Times) > 0 {
		block.Times = make([]scheduler.TimeOfDay, 0, len(f.Times))
		for _, t := range f.Times {
			block.Times = append(block.Times, MustTime(t))
		}
	}
	return block
}

func (f BlockFixture) Input() application.BlockInput {
	return application.BlockInput{Date: f.Date, Times: f.Times, Reason: f.Reason}
}
