package events

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"finsync/internal/cache"
)

// ChangeMessage tells other clients that cached reads of an account went
// stale. It carries no entity data; receivers refetch.
type ChangeMessage struct {
	ID        string         `json:"id"`
	Origin    string         `json:"origin"`
	AccountID string         `json:"accountId"`
	Targets   []cache.Target `json:"targets"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewChangeMessage builds a message for targets of a single account.
func NewChangeMessage(origin, accountID string, targets []cache.Target) *ChangeMessage {
	return &ChangeMessage{
		ID:        uuid.NewString(),
		Origin:    origin,
		AccountID: accountID,
		Targets:   targets,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and checks a message. Targets for another
// account than the message's are rejected.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.AccountID == "" {
		return nil, errors.New("change message without account")
	}
	for _, t := range msg.Targets {
		if t.AccountID != msg.AccountID {
			return nil, errors.New("change message target outside its account")
		}
	}
	return &msg, nil
}

// groupByAccount splits targets into one batch per account, keeping the
// order accounts first appear in.
func groupByAccount(targets []cache.Target) (order []string, byAccount map[string][]cache.Target) {
	byAccount = map[string][]cache.Target{}
	for _, t := range targets {
		if t.AccountID == "" {
			continue
		}
		if _, ok := byAccount[t.AccountID]; !ok {
			order = append(order, t.AccountID)
		}
		byAccount[t.AccountID] = append(byAccount[t.AccountID], t)
	}
	return order, byAccount
}
