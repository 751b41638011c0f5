package event

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrPlaceholderValue   = errors.New("placeholder values are not allowed on events")
	ErrAlreadyRegistered  = errors.New("already registered for this event")
	ErrReminderExists     = errors.New("a pending reminder already exists for this event")
	ErrEventNotFound      = errors.New("event not found")
	ErrReminderNeedsDate  = errors.New("reminder date required")
)

// Store wraps event, registration and reminder persistence.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Create persists an event after enforcing the no-placeholder invariant.
// NormalizedTitle is derived here so callers never set it.
func (s *Store) Create(ev *Event) error {
	if err := checkPlaceholders(ev); err != nil {
		return err
	}
	ev.NormalizedTitle = NormalizeTitle(ev.Title)
	if ev.NormalizedTitle == "" {
		return errors.New("event title required")
	}
	return s.db.Create(ev).Error
}

// FindOrCreate upserts an event under its dedup identity:
// (userID, normalized title, source) or (userID, source URL, source).
// Returns the stored event and whether it was newly created. The unique
// index on the identity closes the query-then-insert race: a conflicting
// concurrent insert surfaces as a duplicate-key error and we re-read.
func (s *Store) FindOrCreate(ev *Event) (*Event, bool, error) {
	if err := checkPlaceholders(ev); err != nil {
		return nil, false, err
	}
	norm := NormalizeTitle(ev.Title)
	if norm == "" {
		return nil, false, errors.New("event title required")
	}

	var existing Event
	q := s.db.Where("user_id = ? AND source = ?", ev.UserID, ev.Source)
	if ev.SourceURL != "" {
		q = q.Where("normalized_title = ? OR source_url = ?", norm, ev.SourceURL)
	} else {
		q = q.Where("normalized_title = ?", norm)
	}
	if err := q.First(&existing).Error; err == nil {
		return &existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	ev.NormalizedTitle = norm
	if err := s.db.Create(ev).Error; err != nil {
		// The lost race may be on either identity: the title index or the
		// URL index, so the re-read repeats the full lookup.
		if isDuplicateErr(err) {
			q := s.db.Where("user_id = ? AND source = ?", ev.UserID, ev.Source)
			if ev.SourceURL != "" {
				q = q.Where("normalized_title = ? OR source_url = ?", norm, ev.SourceURL)
			} else {
				q = q.Where("normalized_title = ?", norm)
			}
			if err2 := q.First(&existing).Error; err2 == nil {
				return &existing, false, nil
			}
		}
		return nil, false, err
	}
	return ev, true, nil
}

// FindByTitle resolves a user-phrased event name against the user's stored
// events, by exact normalized match first and near-identical title second.
func (s *Store) FindByTitle(userID uint, title string) (*Event, error) {
	norm := NormalizeTitle(title)
	if norm == "" {
		return nil, ErrEventNotFound
	}
	var ev Event
	if err := s.db.Where("user_id = ? AND normalized_title = ?", userID, norm).
		Order("created_at desc").First(&ev).Error; err == nil {
		return &ev, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	var events []Event
	if err := s.db.Where("user_id = ?", userID).Find(&events).Error; err != nil {
		return nil, err
	}
	for i := range events {
		if SimilarTitles(events[i].Title, title) {
			return &events[i], nil
		}
	}
	return nil, ErrEventNotFound
}

func (s *Store) ByID(userID, eventID uint) (*Event, error) {
	var ev Event
	if err := s.db.Where("id = ? AND user_id = ?", eventID, userID).First(&ev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &ev, nil
}

// DeleteCascade removes an event together with its registrations and reminders.
func (s *Store) DeleteCascade(userID, eventID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var ev Event
		if err := tx.Where("id = ? AND user_id = ?", eventID, userID).First(&ev).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		if err := tx.Where("event_id = ?", ev.ID).Delete(&Registration{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", ev.ID).Delete(&Reminder{}).Error; err != nil {
			return err
		}
		return tx.Delete(&ev).Error
	})
}

// MarkSaved flags an event as kept by its owner.
func (s *Store) MarkSaved(userID, eventID uint) error {
	res := s.db.Model(&Event{}).Where("id = ? AND user_id = ?", eventID, userID).Update("saved", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// --- Derived views ---

func (s *Store) Upcoming(userID uint) ([]Event, error) {
	var events []Event
	err := s.db.Where("user_id = ?", userID).
		Where("start_date IS NULL OR start_date >= ?", time.Now()).
		Order("start_date asc").Find(&events).Error
	return events, err
}

func (s *Store) Past(userID uint) ([]Event, error) {
	var events []Event
	err := s.db.Where("user_id = ?", userID).
		Where("start_date IS NOT NULL AND start_date < ?", time.Now()).
		Order("start_date desc").Find(&events).Error
	return events, err
}

func (s *Store) CreatedBy(userID uint) ([]Event, error) {
	var events []Event
	err := s.db.Where("user_id = ? AND source = ?", userID, SourceUserCreated).
		Order("created_at desc").Find(&events).Error
	return events, err
}

func (s *Store) Discovered(userID uint) ([]Event, error) {
	var events []Event
	err := s.db.Where("user_id = ? AND source = ?", userID, SourceDiscovered).
		Order("created_at desc").Find(&events).Error
	return events, err
}

func (s *Store) Registered(userID uint) ([]Event, error) {
	var events []Event
	err := s.db.
		Where("id IN (SELECT event_id FROM registrations WHERE user_id = ? AND deleted_at IS NULL)", userID).
		Order("created_at desc").Find(&events).Error
	return events, err
}

// RemindLater returns only events with a remind_later reminder. The type is
// never conflated with before_event reminders.
func (s *Store) RemindLater(userID uint) ([]Event, error) {
	var events []Event
	err := s.db.
		Where("id IN (SELECT event_id FROM reminders WHERE user_id = ? AND reminder_type = ? AND deleted_at IS NULL)",
			userID, ReminderRemindLater).
		Order("created_at desc").Find(&events).Error
	return events, err
}

// --- Registrations ---

func (s *Store) CreateRegistration(reg *Registration) error {
	var count int64
	if err := s.db.Model(&Registration{}).
		Where("user_id = ? AND event_id = ?", reg.UserID, reg.EventID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadyRegistered
	}
	if err := s.db.Create(reg).Error; err != nil {
		if isDuplicateErr(err) {
			return ErrAlreadyRegistered
		}
		return err
	}
	return nil
}

// LatestRegistration returns the most recent registration for a user, if any.
func (s *Store) LatestRegistration(userID uint) (*Registration, error) {
	var reg Registration
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at desc").First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}

// --- Reminders ---

// CreateReminder enforces one pending reminder per (user, event).
func (s *Store) CreateReminder(rem *Reminder) error {
	if rem.ReminderDate.IsZero() {
		return ErrReminderNeedsDate
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Reminder{}).
			Where("user_id = ? AND event_id = ? AND status = ?", rem.UserID, rem.EventID, ReminderPending).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrReminderExists
		}
		return tx.Create(rem).Error
	})
}

// DueReminders returns pending reminders whose date has passed.
func (s *Store) DueReminders(now time.Time) ([]Reminder, error) {
	var rems []Reminder
	err := s.db.Where("status = ? AND reminder_date <= ?", ReminderPending, now).
		Order("reminder_date asc").Find(&rems).Error
	return rems, err
}

func (s *Store) MarkReminderSent(reminderID uint) error {
	return s.db.Model(&Reminder{}).Where("id = ?", reminderID).
		Update("status", ReminderSent).Error
}

// checkPlaceholders rejects literal placeholder values; absence is always
// preferred over invented data.
func checkPlaceholders(ev *Event) error {
	if strings.EqualFold(strings.TrimSpace(ev.Location), "TBD") {
		return ErrPlaceholderValue
	}
	if strings.EqualFold(strings.TrimSpace(ev.Title), "TBD") {
		return ErrPlaceholderValue
	}
	return nil
}

func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
