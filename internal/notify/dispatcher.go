package notify

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"eventchat/internal/event"
	"eventchat/internal/user"
)

// Dispatcher sweeps due reminders on an interval and delivers them. A
// reminder is marked sent only after delivery succeeds; a failed delivery
// stays pending and is retried on the next sweep.
type Dispatcher struct {
	db       *gorm.DB
	events   *event.Store
	sender   Sender
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	nowFunc  func() time.Time
}

func NewDispatcher(db *gorm.DB, events *event.Store, sender Sender, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Dispatcher{
		db:       db,
		events:   events,
		sender:   sender,
		interval: interval,
		stopCh:   make(chan struct{}),
		nowFunc:  time.Now,
	}
}

// Start begins the background sweep routine.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
	log.Printf("[Reminders] Started dispatcher (interval %s)", d.interval)
}

// Stop stops the dispatcher and waits for an in-flight sweep to finish.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
	log.Printf("[Reminders] Stopped dispatcher")
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.Sweep()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.Sweep()
		}
	}
}

// Sweep delivers every reminder that has come due. A panic in one sweep is
// contained so the ticker loop keeps running.
func (d *Dispatcher) Sweep() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Reminders] Recovered from panic during sweep: %v", r)
		}
	}()

	due, err := d.events.DueReminders(d.nowFunc())
	if err != nil {
		log.Printf("[Reminders] Failed to load due reminders: %v", err)
		return
	}
	for _, rem := range due {
		if err := d.deliver(rem); err != nil {
			log.Printf("[Reminders] Delivery failed for reminder %d: %v", rem.ID, err)
			continue
		}
		if err := d.events.MarkReminderSent(rem.ID); err != nil {
			log.Printf("[Reminders] Failed to mark reminder %d sent: %v", rem.ID, err)
		}
	}
}

func (d *Dispatcher) deliver(rem event.Reminder) error {
	ev, err := d.events.ByID(rem.UserID, rem.EventID)
	if errors.Is(err, event.ErrEventNotFound) {
		// The event is gone; retire the orphaned reminder.
		return d.events.MarkReminderSent(rem.ID)
	} else if err != nil {
		return err
	}
	var u user.User
	if err := d.db.First(&u, rem.UserID).Error; err != nil {
		return err
	}

	subject := fmt.Sprintf("Reminder: %s", ev.Title)
	body := fmt.Sprintf("This is your reminder for %q.", ev.Title)
	if ev.StartDate != nil {
		body += fmt.Sprintf(" It starts on %s.", ev.StartDate.Format("Mon, Jan 2 at 15:04"))
	}
	if ev.Location != "" {
		body += fmt.Sprintf(" Location: %s.", ev.Location)
	}
	return d.sender.Send(u.Email, subject, body)
}
