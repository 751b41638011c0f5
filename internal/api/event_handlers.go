package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"eventchat/internal/db"
	"eventchat/internal/event"
)

// GET /events?filter=upcoming|past|created|discovered|registered|remind_later
func ListEventsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := c.Get("userId")
		store := event.NewStore(db.DB)

		filter := c.DefaultQuery("filter", "upcoming")
		var (
			events []event.Event
			err    error
		)
		switch filter {
		case "upcoming":
			events, err = store.Upcoming(userId.(uint))
		case "past":
			events, err = store.Past(userId.(uint))
		case "created":
			events, err = store.CreatedBy(userId.(uint))
		case "discovered":
			events, err = store.Discovered(userId.(uint))
		case "registered":
			events, err = store.Registered(userId.(uint))
		case "remind_later":
			events, err = store.RemindLater(userId.(uint))
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown filter"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list events"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"filter": filter, "events": events})
	}
}

// GET /events/:id
func GetEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := c.Get("userId")
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
			return
		}
		ev, err := event.NewStore(db.DB).ByID(userId.(uint), uint(id))
		if err != nil {
			if errors.Is(err, event.ErrEventNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load event"})
			return
		}
		c.JSON(http.StatusOK, ev)
	}
}

// DELETE /events/:id removes the event with its registrations and reminders.
func DeleteEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := c.Get("userId")
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
			return
		}
		if err := event.NewStore(db.DB).DeleteCascade(userId.(uint), uint(id)); err != nil {
			if errors.Is(err, event.ErrEventNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete event"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Event deleted"})
	}
}

// POST /events/:id/save keeps a discovered event on the user's list
// explicitly, so it survives UI pruning of stale discoveries.
func SaveEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := c.Get("userId")
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
			return
		}
		if err := event.NewStore(db.DB).MarkSaved(userId.(uint), uint(id)); err != nil {
			if errors.Is(err, event.ErrEventNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save event"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"eventId": uint(id), "saved": true})
	}
}

type RemindLaterRequest struct {
	Days int `json:"days"`
}

// POST /events/:id/remind-later parks an event for later. This creates a
// remind_later reminder, a separate thing from the before_event reminders
// the chat flow sets; the two are never merged.
func RemindLaterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := c.Get("userId")
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
			return
		}
		var req RemindLaterRequest
		_ = c.ShouldBindJSON(&req)
		if req.Days <= 0 {
			req.Days = 1
		}

		store := event.NewStore(db.DB)
		ev, err := store.ByID(userId.(uint), uint(id))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		rem := &event.Reminder{
			UserID:       userId.(uint),
			EventID:      ev.ID,
			ReminderDate: time.Now().Add(time.Duration(req.Days) * 24 * time.Hour),
			ReminderType: event.ReminderRemindLater,
			Status:       event.ReminderPending,
		}
		if err := store.CreateReminder(rem); err != nil {
			if errors.Is(err, event.ErrReminderExists) {
				c.JSON(http.StatusConflict, gin.H{"error": "A pending reminder already exists for this event"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create reminder"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"eventId":      ev.ID,
			"reminderDate": rem.ReminderDate,
			"reminderType": rem.ReminderType,
		})
	}
}
