// Package usage tracks the daily free-tier counters for downloads,
// translations and optimizations, and the premium subscription that lifts them.
package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/cv-builder/internal/storage"
)

// Action is a usage-limited operation
type Action string

// Limited actions
const (
	ActionDownload  Action = "download"
	ActionTranslate Action = "translate"
	ActionOptimize  Action = "optimize"
)

// AllActions lists every limited action
func AllActions() []Action {
	return []Action{ActionDownload, ActionTranslate, ActionOptimize}
}

var actionKeys = map[Action]string{
	ActionDownload:  "cv_downloads",
	ActionTranslate: "cv_translations",
	ActionOptimize:  "cv_optimizations",
}

// PremiumKey stores the subscription record
const PremiumKey = "cv_premium_user"

// FreeDailyLimit is how many times a free user may run each action per day
const FreeDailyLimit = 1

// Key returns the storage key of the action's counter
func (a Action) Key() string {
	return actionKeys[a]
}

// Valid reports whether the action is tracked
func (a Action) Valid() bool {
	_, ok := actionKeys[a]
	return ok
}

// Decision is the outcome of a usage check. Remaining is -1 for premium users.
type Decision struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
	IsNewDay  bool `json:"isNewDay"`
}

// Record is the persisted counter of one action
type Record struct {
	Count          int       `json:"count"`
	LastActionDate time.Time `json:"lastActionDate"`
}

// Subscription is the persisted premium record
type Subscription struct {
	IsPremium   bool       `json:"isPremium"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`
}

// SubscriptionInfo is the public view of the subscription
type SubscriptionInfo struct {
	IsPremium bool       `json:"isPremium"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Tracker reads and updates counters in a session-scoped store
type Tracker struct {
	store storage.Store
	limit int
	now   func() time.Time
}

// NewTracker creates a tracker over a store already scoped to one session.
func NewTracker(store storage.Store) *Tracker {
	return &Tracker{store: store, limit: FreeDailyLimit, now: time.Now}
}

// WithClock replaces the time source
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// WithLimit overrides the free daily limit
func (t *Tracker) WithLimit(limit int) *Tracker {
	t.limit = limit
	return t
}

// Limit returns the free daily limit
func (t *Tracker) Limit() int {
	return t.limit
}

// Check reports whether action may run now. It does not count the action.
func (t *Tracker) Check(ctx context.Context, action Action) (Decision, error) {
	if !action.Valid() {
		return Decision{}, fmt.Errorf("unknown usage action %q", action)
	}

	premium, err := t.IsPremium(ctx)
	if err != nil {
		return Decision{}, err
	}
	if premium {
		return Decision{Allowed: true, Remaining: -1}, nil
	}

	rec, err := t.load(ctx, action)
	if err != nil {
		return Decision{}, err
	}

	now := t.now()
	if !sameDay(rec.LastActionDate, now) {
		return Decision{Allowed: true, Remaining: t.limit - 1, IsNewDay: true}, nil
	}

	return Decision{
		Allowed:   rec.Count < t.limit,
		Remaining: max(0, t.limit-rec.Count),
	}, nil
}

// Record counts one successful run of action. Premium users are not counted.
func (t *Tracker) Record(ctx context.Context, action Action) error {
	if !action.Valid() {
		return fmt.Errorf("unknown usage action %q", action)
	}

	premium, err := t.IsPremium(ctx)
	if err != nil {
		return err
	}
	if premium {
		return nil
	}

	rec, err := t.load(ctx, action)
	if err != nil {
		return err
	}

	now := t.now()
	if sameDay(rec.LastActionDate, now) {
		rec.Count++
	} else {
		rec.Count = 1
	}
	rec.LastActionDate = now

	return t.save(ctx, action.Key(), rec)
}

// Usage returns the stored counter of action
func (t *Tracker) Usage(ctx context.Context, action Action) (Record, error) {
	return t.load(ctx, action)
}

// IsPremium reports whether an unexpired subscription is active.
func (t *Tracker) IsPremium(ctx context.Context) (bool, error) {
	sub, err := t.subscription(ctx)
	if err != nil {
		return false, err
	}
	return t.active(sub), nil
}

// ActivatePremium starts a subscription lasting the given number of months.
func (t *Tracker) ActivatePremium(ctx context.Context, months int) (SubscriptionInfo, error) {
	if months < 1 {
		return SubscriptionInfo{}, fmt.Errorf("subscription length must be at least one month, got %d", months)
	}
	now := t.now()
	expires := now.AddDate(0, months, 0)
	sub := Subscription{IsPremium: true, ExpiresAt: &expires, ActivatedAt: &now}
	if err := t.save(ctx, PremiumKey, sub); err != nil {
		return SubscriptionInfo{}, err
	}
	log.Printf("[USAGE] Premium activated for %d month(s), expires %s", months, expires.Format(time.RFC3339))
	return SubscriptionInfo{IsPremium: true, ExpiresAt: &expires}, nil
}

// CancelPremium removes the subscription record
func (t *Tracker) CancelPremium(ctx context.Context) error {
	return t.store.Delete(ctx, PremiumKey)
}

// SubscriptionInfo returns whether premium is active and when it expires
func (t *Tracker) SubscriptionInfo(ctx context.Context) (SubscriptionInfo, error) {
	sub, err := t.subscription(ctx)
	if err != nil {
		return SubscriptionInfo{}, err
	}
	return SubscriptionInfo{IsPremium: t.active(sub), ExpiresAt: sub.ExpiresAt}, nil
}

func (t *Tracker) active(sub Subscription) bool {
	if sub.ExpiresAt != nil {
		return t.now().Before(*sub.ExpiresAt)
	}
	return sub.IsPremium
}

// load returns the action's record. Missing or corrupt data reads as an
// unused counter dated now.
func (t *Tracker) load(ctx context.Context, action Action) (Record, error) {
	raw, err := t.store.Get(ctx, action.Key())
	if errors.Is(err, storage.ErrNotFound) {
		return Record{LastActionDate: t.now()}, nil
	}
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		log.Printf("[USAGE] Ignoring corrupt %s record: %v", action.Key(), err)
		return Record{LastActionDate: t.now()}, nil
	}
	return rec, nil
}

func (t *Tracker) subscription(ctx context.Context) (Subscription, error) {
	raw, err := t.store.Get(ctx, PremiumKey)
	if errors.Is(err, storage.ErrNotFound) {
		return Subscription{}, nil
	}
	if err != nil {
		return Subscription{}, err
	}
	var sub Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		log.Printf("[USAGE] Ignoring corrupt subscription record: %v", err)
		return Subscription{}, nil
	}
	return sub, nil
}

func (t *Tracker) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return t.store.Set(ctx, key, data)
}

// sameDay compares calendar dates in the clock's location
func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ActionUsage combines an action's counter with its current decision
type ActionUsage struct {
	Count          int       `json:"count"`
	LastActionDate time.Time `json:"lastActionDate"`
	Decision
}

// Summary is the full usage picture of one session
type Summary struct {
	Limit        int                    `json:"limit"`
	Subscription SubscriptionInfo       `json:"subscription"`
	Actions      map[Action]ActionUsage `json:"actions"`
}

// Summary reports the counters and decisions of every action.
func (t *Tracker) Summary(ctx context.Context) (Summary, error) {
	sub, err := t.SubscriptionInfo(ctx)
	if err != nil {
		return Summary{}, err
	}
	out := Summary{Limit: t.limit, Subscription: sub, Actions: make(map[Action]ActionUsage, len(actionKeys))}
	for _, a := range AllActions() {
		rec, err := t.load(ctx, a)
		if err != nil {
			return Summary{}, err
		}
		dec, err := t.Check(ctx, a)
		if err != nil {
			return Summary{}, err
		}
		out.Actions[a] = ActionUsage{Count: rec.Count, LastActionDate: rec.LastActionDate, Decision: dec}
	}
	return out, nil
}
