// Package seed loads a festival, its days and its administrators from YAML
// and writes them to a store.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
)

const dateLayout = "2006-01-02"

//go:embed default.yaml
var defaultDoc []byte

// Document is the YAML seed format.
type Document struct {
	Festival FestivalDoc `yaml:"festival"`
	Days     []DayDoc    `yaml:"days"`
	Admins   []AdminDoc  `yaml:"admins"`
}

// FestivalDoc describes the festival; dates use the YYYY-MM-DD layout.
type FestivalDoc struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	Location       string  `yaml:"location"`
	StartDate      string  `yaml:"start_date"`
	EndDate        string  `yaml:"end_date"`
	Price          float64 `yaml:"price"`
	CapacityPerDay int     `yaml:"capacity_per_day"`
}

// DayDoc describes one day. A zero capacity takes the festival default.
type DayDoc struct {
	ID       string `yaml:"id"`
	Date     string `yaml:"date"`
	Theme    string `yaml:"theme"`
	Menu     string `yaml:"menu"`
	Capacity int    `yaml:"capacity"`
}

// AdminDoc provisions an administrator ahead of their first Google sign-in.
type AdminDoc struct {
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

// Registry is the store surface the seeder writes festivals and days to.
type Registry interface {
	Festival(ctx context.Context) (*model.Festival, error)
	SaveFestival(ctx context.Context, f *model.Festival) error
	GetDay(ctx context.Context, id string) (*model.Day, error)
	CreateDay(ctx context.Context, d *model.Day) error
}

// Users is the store surface the seeder writes administrators to.
type Users interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
}

// Result counts what Apply wrote.
type Result struct {
	FestivalCreated bool
	DaysCreated     int
	DaysSkipped     int
	AdminsCreated   int
}

// Default returns the built-in five-day festival.
func Default() (*Document, error) {
	return Decode(bytes.NewReader(defaultDoc))
}

// Load reads a seed document from path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses and validates a seed document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) validate() error {
	if strings.TrimSpace(d.Festival.Name) == "" {
		return fmt.Errorf("%w: festival.name is required", model.ErrValidation)
	}
	start, end, err := d.Festival.window()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("%w: festival ends before it starts", model.ErrValidation)
	}
	if d.Festival.CapacityPerDay < 1 {
		return fmt.Errorf("%w: festival.capacity_per_day must be positive", model.ErrValidation)
	}

	seen := make(map[string]struct{}, len(d.Days))
	for i, day := range d.Days {
		if day.ID == "" {
			return fmt.Errorf("%w: days[%d].id is required", model.ErrValidation, i)
		}
		if _, dup := seen[day.ID]; dup {
			return fmt.Errorf("%w: duplicate day id %q", model.ErrValidation, day.ID)
		}
		seen[day.ID] = struct{}{}
		if _, err := time.Parse(dateLayout, day.Date); err != nil {
			return fmt.Errorf("%w: days[%d].date: %v", model.ErrValidation, i, err)
		}
		if day.Capacity < 0 {
			return fmt.Errorf("%w: days[%d].capacity is negative", model.ErrValidation, i)
		}
	}
	for i, a := range d.Admins {
		if !strings.Contains(a.Email, "@") {
			return fmt.Errorf("%w: admins[%d].email is invalid", model.ErrValidation, i)
		}
	}
	return nil
}

func (f FestivalDoc) window() (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, f.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: festival.start_date: %v", model.ErrValidation, err)
	}
	end, err := time.Parse(dateLayout, f.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: festival.end_date: %v", model.ErrValidation, err)
	}
	return start, end, nil
}

// Apply writes doc to the stores. It is idempotent: an existing festival is
// kept, days whose id already exists are skipped and admins are matched by
// email. users may be nil when the document has no admins.
func Apply(ctx context.Context, doc *Document, reg Registry, users Users, log *slog.Logger) (Result, error) {
	var res Result
	now := time.Now().UTC()

	festival, err := reg.Festival(ctx)
	switch {
	case errors.Is(err, model.ErrFestivalNotFound):
		start, end, _ := doc.Festival.window()
		id := doc.Festival.ID
		if id == "" {
			id = uuid.NewString()
		}
		festival = &model.Festival{
			ID:             id,
			Name:           doc.Festival.Name,
			Location:       doc.Festival.Location,
			StartDate:      start,
			EndDate:        end,
			Price:          doc.Festival.Price,
			CapacityPerDay: doc.Festival.CapacityPerDay,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := reg.SaveFestival(ctx, festival); err != nil {
			return res, fmt.Errorf("save festival: %w", err)
		}
		res.FestivalCreated = true
		log.Info("festival created", slog.String("festival_id", festival.ID), slog.String("name", festival.Name))
	case err != nil:
		return res, fmt.Errorf("load festival: %w", err)
	default:
		log.Info("festival exists, keeping it", slog.String("festival_id", festival.ID))
	}

	for _, dd := range doc.Days {
		_, err := reg.GetDay(ctx, dd.ID)
		if err == nil {
			res.DaysSkipped++
			continue
		}
		if !errors.Is(err, model.ErrDayNotFound) {
			return res, fmt.Errorf("get day %s: %w", dd.ID, err)
		}

		date, _ := time.Parse(dateLayout, dd.Date)
		capacity := dd.Capacity
		if capacity == 0 {
			capacity = festival.CapacityPerDay
		}
		day := &model.Day{
			ID:         dd.ID,
			FestivalID: festival.ID,
			Date:       date,
			Theme:      dd.Theme,
			Menu:       dd.Menu,
			Capacity:   capacity,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := reg.CreateDay(ctx, day); err != nil {
			// A deleted day keeps its id, and a live day may already hold the date.
			if errors.Is(err, model.ErrDayDateTaken) || errors.Is(err, model.ErrValidation) {
				log.Warn("day skipped", slog.String("day_id", dd.ID), slog.String("reason", err.Error()))
				res.DaysSkipped++
				continue
			}
			return res, fmt.Errorf("create day %s: %w", dd.ID, err)
		}
		res.DaysCreated++
	}

	if len(doc.Admins) > 0 && users == nil {
		return res, errors.New("seed: admins given without a user store")
	}
	for _, a := range doc.Admins {
		email := strings.ToLower(strings.TrimSpace(a.Email))
		_, err := users.GetByEmail(ctx, email)
		if err == nil {
			continue
		}
		if !errors.Is(err, model.ErrUserNotFound) {
			return res, fmt.Errorf("get admin %s: %w", email, err)
		}
		name := a.Name
		if name == "" {
			name = email
		}
		u := &model.User{
			ID:         uuid.NewString(),
			Email:      email,
			Name:       name,
			EmailOptIn: true,
			IsAdmin:    true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := users.CreateUser(ctx, u); err != nil {
			return res, fmt.Errorf("create admin %s: %w", email, err)
		}
		res.AdminsCreated++
	}

	log.Info("seed applied",
		slog.Bool("festival_created", res.FestivalCreated),
		slog.Int("days_created", res.DaysCreated),
		slog.Int("days_skipped", res.DaysSkipped),
		slog.Int("admins_created", res.AdminsCreated),
	)
	return res, nil
}
