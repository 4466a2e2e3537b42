package domain

import (
	crypto_rand "crypto/rand"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "SUCCESS"
	NotificationError   NotificationLevel = "ERROR"
	NotificationInfo    NotificationLevel = "INFO"
)

// Action names the operation a notification reports on.
type Action string

const (
	ActionPoll          Action = "poll"
	ActionStartSniffing Action = "start_sniffing"
	ActionUnblock       Action = "unblock"
	ActionTheme         Action = "theme"
)

// Notification is a transient, user-facing report of an action outcome.
type Notification struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Level     NotificationLevel `json:"level"`
	Action    Action            `json:"action"`
	Target    string            `json:"target,omitempty"`
	Message   string            `json:"message"`
}

func NewNotification(level NotificationLevel, action Action, target, message string) *Notification {
	return &Notification{
		ID:        generateNotificationID(),
		Timestamp: time.Now().UTC(),
		Level:     level,
		Action:    action,
		Target:    target,
		Message:   message,
	}
}

func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

func (n *Notification) IsError() bool {
	return n.Level == NotificationError
}

var notificationCounter atomic.Uint64

func generateNotificationID() string {
	var randBytes [4]byte
	if _, err := crypto_rand.Read(randBytes[:]); err != nil {
		return fmt.Sprintf("%s-%d-00000000",
			time.Now().UTC().Format("20060102150405"),
			notificationCounter.Add(1))
	}
	return fmt.Sprintf("%s-%d-%08x",
		time.Now().UTC().Format("20060102150405"),
		notificationCounter.Add(1),
		binary.BigEndian.Uint32(randBytes[:]))
}
