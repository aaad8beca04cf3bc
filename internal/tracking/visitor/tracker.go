package visitor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// sessionInactivity is how long a session survives without activity.
const sessionInactivity = 30 * time.Minute

const (
	keyVisitorID    = "visitor_id"
	keySessionID    = "session_id"
	keyLastActivity = "last_activity"
	keyFirstVisit   = "first_visit"
	keyPageViews    = "page_views"
	keyAttribution  = "attribution"
	keyReferrer     = "referrer"
	keyLandingPage  = "landing_page"
)

// PageVisit is one page load as observed by the tracker.
type PageVisit struct {
	URL      string
	Referrer string
	UTM      map[string]string
}

// Snapshot is the server-side view of one visitor's accumulated state.
type Snapshot struct {
	FirstVisit  string
	PageViews   int64
	Referrer    string
	LandingPage string
	UTM         map[string]string
}

// Tracker applies the identity rules of one browser context on top of a
// Store: the visitor id is minted once and never rotates, the session id is
// reminted after 30 minutes of inactivity, and attribution is first-touch.
type Tracker struct {
	store Store
	now   func() time.Time
	newID func() string
}

func NewTracker(store Store) *Tracker {
	return &Tracker{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// GetOrCreateVisitorID returns the stable visitor id, minting it on first
// call. A concurrent mint loses to whoever wrote first.
func (t *Tracker) GetOrCreateVisitorID(ctx context.Context) (string, error) {
	if id, ok, err := t.store.Get(ctx, keyVisitorID); err != nil {
		return "", err
	} else if ok {
		return id, nil
	}

	id := t.newID()
	if wrote, err := t.store.SetNX(ctx, keyVisitorID, id); err != nil {
		return "", err
	} else if !wrote {
		id, _, err = t.store.Get(ctx, keyVisitorID)
		return id, err
	}
	return id, nil
}

// GetOrCreateSessionID returns the current session id, reminting it when the
// last recorded activity is older than the inactivity window. Every call
// counts as activity.
func (t *Tracker) GetOrCreateSessionID(ctx context.Context) (string, error) {
	now := t.now()

	id, ok, err := t.store.Get(ctx, keySessionID)
	if err != nil {
		return "", err
	}
	if ok && !t.sessionExpired(ctx, now) {
		return id, t.touch(ctx, now)
	}

	id = t.newID()
	if err := t.store.Set(ctx, keySessionID, id); err != nil {
		return "", err
	}
	return id, t.touch(ctx, now)
}

// TrackPageView records one page load: bumps the counter, stamps the first
// visit, and captures first-touch attribution. Returns the new page-view
// count.
func (t *Tracker) TrackPageView(ctx context.Context, visit PageVisit) (int64, error) {
	now := t.now()

	if _, err := t.store.SetNX(ctx, keyFirstVisit, now.UTC().Format(time.RFC3339)); err != nil {
		return 0, err
	}
	if visit.Referrer != "" {
		if _, err := t.store.SetNX(ctx, keyReferrer, visit.Referrer); err != nil {
			return 0, err
		}
	}
	if visit.URL != "" {
		if _, err := t.store.SetNX(ctx, keyLandingPage, visit.URL); err != nil {
			return 0, err
		}
	}
	if err := t.captureAttribution(ctx, visit.UTM); err != nil {
		return 0, err
	}

	views, err := t.store.Incr(ctx, keyPageViews)
	if err != nil {
		return 0, err
	}
	return views, t.touch(ctx, now)
}

// Attribution returns the first-touch UTM snapshot, nil when none was ever
// captured.
func (t *Tracker) Attribution(ctx context.Context) (map[string]string, error) {
	raw, ok, err := t.store.Get(ctx, keyAttribution)
	if err != nil || !ok {
		return nil, err
	}
	var utm map[string]string
	if err := json.Unmarshal([]byte(raw), &utm); err != nil {
		return nil, fmt.Errorf("decode attribution: %w", err)
	}
	return utm, nil
}

// Snapshot reads the accumulated visitor state without mutating it.
func (t *Tracker) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	utm, err := t.Attribution(ctx)
	if err != nil {
		return snap, err
	}
	snap.UTM = utm

	stringKeys := []struct {
		key string
		dst *string
	}{
		{keyFirstVisit, &snap.FirstVisit},
		{keyReferrer, &snap.Referrer},
		{keyLandingPage, &snap.LandingPage},
	}
	for _, sk := range stringKeys {
		v, _, err := t.store.Get(ctx, sk.key)
		if err != nil {
			return snap, err
		}
		*sk.dst = v
	}

	raw, ok, err := t.store.Get(ctx, keyPageViews)
	if err != nil {
		return snap, err
	}
	if ok {
		snap.PageViews, _ = strconv.ParseInt(raw, 10, 64)
	}
	return snap, nil
}

// captureAttribution persists the UTM set only when no attribution exists
// yet. Later visits with different parameters never overwrite it.
func (t *Tracker) captureAttribution(ctx context.Context, utm map[string]string) error {
	if len(utm) == 0 {
		return nil
	}
	raw, err := json.Marshal(utm)
	if err != nil {
		return fmt.Errorf("encode attribution: %w", err)
	}
	_, err = t.store.SetNX(ctx, keyAttribution, string(raw))
	return err
}

func (t *Tracker) sessionExpired(ctx context.Context, now time.Time) bool {
	raw, ok, err := t.store.Get(ctx, keyLastActivity)
	if err != nil || !ok {
		return true
	}
	last, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return true
	}
	return now.Sub(last) > sessionInactivity
}

func (t *Tracker) touch(ctx context.Context, now time.Time) error {
	return t.store.Set(ctx, keyLastActivity, now.UTC().Format(time.RFC3339))
}
