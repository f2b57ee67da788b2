// Package geofence decides whether a ward's reported position is inside any
// of their active safe zones, and raises a breach alert when they leave.
//
// Alerting is transition-based: the evaluator persists the ward's last known
// containment state and only the sample that flips inside to outside raises
// an alert. Re-alerting on every outside sample would page guardians once
// per ping for the whole excursion.
package geofence

import (
	"context"
	"fmt"

	statestore "github.com/caresphere/caresphere/internal/app/store/geofencestate"
	locationstore "github.com/caresphere/caresphere/internal/app/store/locations"
	safezonestore "github.com/caresphere/caresphere/internal/app/store/safezones"
	userstore "github.com/caresphere/caresphere/internal/app/store/users"
	"github.com/caresphere/caresphere/internal/app/system/dispatch"
	"github.com/caresphere/caresphere/internal/app/system/geo"
	"github.com/caresphere/caresphere/internal/app/system/metrics"
	"github.com/caresphere/caresphere/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Evaluation is the outcome of testing one sample against a ward's zones.
type Evaluation struct {
	Inside bool
	// Zone is the first active zone containing the sample; nil when outside.
	Zone *models.SafeZone
	// DistanceMeters is the distance to the containing zone's center when
	// inside, or to the nearest active zone's center when outside. Zero when
	// the ward has no active zones.
	DistanceMeters float64
	// ZeroZones reports that the ward has no active safe zones at all. Such
	// wards are always outside; the client surfaces this so "configure a
	// zone" is an explicit ask rather than silent safety.
	ZeroZones bool
}

// Observation is the result of recording and evaluating one sample.
type Observation struct {
	Sample     models.LocationSample
	Evaluation Evaluation
	// Breached is true when this sample flipped the ward from inside to
	// outside and an alert was raised.
	Breached bool
	Alert    *models.Alert
}

// AlertRaiser raises a breach alert and fans it out to the ward's guardians.
// *dispatch.Dispatcher satisfies it.
type AlertRaiser interface {
	RaiseGeofenceAlert(ctx context.Context, wardID primitive.ObjectID, wardName string, loc models.GeoPoint, zoneID *primitive.ObjectID, zoneName string) (dispatch.RaiseResult, error)
}

// Evaluator runs samples through zone containment and drives breach alerts.
type Evaluator struct {
	zones      *safezonestore.Store
	locations  *locationstore.Store
	state      *statestore.Store
	users      *userstore.Store
	dispatcher AlertRaiser
	log        *zap.Logger
}

func New(zones *safezonestore.Store, locations *locationstore.Store, state *statestore.Store, users *userstore.Store, dispatcher AlertRaiser, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		zones:      zones,
		locations:  locations,
		state:      state,
		users:      users,
		dispatcher: dispatcher,
		log:        logger,
	}
}

// Evaluate tests a position against the ward's active safe zones. The first
// containing zone wins; zones may overlap and any containing zone grants
// safety, so there is no nearest-zone tie-break.
func (e *Evaluator) Evaluate(ctx context.Context, wardID primitive.ObjectID, lat, lon float64) (Evaluation, error) {
	zones, err := e.zones.ListByWard(ctx, wardID, true)
	if err != nil {
		return Evaluation{}, fmt.Errorf("load safe zones: %w", err)
	}

	if len(zones) == 0 {
		metrics.GeofenceEvaluations.WithLabelValues("outside_no_zones").Inc()
		return Evaluation{Inside: false, ZeroZones: true}, nil
	}

	nearest := -1.0
	for i := range zones {
		z := zones[i]
		d := geo.Distance(lat, lon, z.Center.Lat, z.Center.Lon)
		if d <= z.RadiusMeters {
			metrics.GeofenceEvaluations.WithLabelValues("inside").Inc()
			return Evaluation{Inside: true, Zone: &zones[i], DistanceMeters: d}, nil
		}
		if nearest < 0 || d < nearest {
			nearest = d
		}
	}

	metrics.GeofenceEvaluations.WithLabelValues("outside").Inc()
	return Evaluation{Inside: false, DistanceMeters: nearest}, nil
}

// Containment returns the ward's last evaluated containment state. The bool
// result is false when no sample has ever been evaluated for the ward.
func (e *Evaluator) Containment(ctx context.Context, wardID primitive.ObjectID) (models.WardGeofenceState, bool, error) {
	return e.state.Get(ctx, wardID)
}

// Observe records the sample, evaluates containment, and raises a geofence
// alert when the ward transitioned from inside to outside. The containment
// state compare-and-set guarantees concurrent samples for the same flip
// produce exactly one alert.
func (e *Evaluator) Observe(ctx context.Context, sample models.LocationSample) (Observation, error) {
	sample, err := e.locations.Record(ctx, sample)
	if err != nil {
		return Observation{}, fmt.Errorf("record location sample: %w", err)
	}

	ev, err := e.Evaluate(ctx, sample.WardID, sample.Lat, sample.Lon)
	if err != nil {
		return Observation{Sample: sample}, err
	}
	obs := Observation{Sample: sample, Evaluation: ev}

	var zoneID *primitive.ObjectID
	if ev.Zone != nil {
		zoneID = &ev.Zone.ID
	}
	changed, err := e.state.Transition(ctx, sample.WardID, ev.Inside, zoneID)
	if err != nil {
		return obs, fmt.Errorf("update containment state: %w", err)
	}
	if ev.Inside || !changed {
		// Still inside, or still outside from an earlier breach that
		// already alerted.
		return obs, nil
	}

	wardName := "ward"
	if u, err := e.users.GetByID(ctx, sample.WardID); err == nil {
		wardName = u.DisplayName
	} else {
		e.log.Warn("ward lookup failed while raising breach alert",
			zap.Error(err), zap.String("ward_id", sample.WardID.Hex()))
	}

	res, err := e.dispatcher.RaiseGeofenceAlert(ctx, sample.WardID, wardName, sample.Point(), zoneID, "")
	if err != nil {
		// Roll the containment state back to inside: leaving it at
		// outside would make every later sample of this excursion a
		// non-transition and the breach would never alert. The next
		// outside sample re-flips the state and retries the alert.
		if _, rbErr := e.state.Transition(ctx, sample.WardID, true, nil); rbErr != nil {
			e.log.Error("containment rollback failed after alert error",
				zap.Error(rbErr), zap.String("ward_id", sample.WardID.Hex()))
		}
		return obs, err
	}
	obs.Breached = true
	obs.Alert = &res.Alert
	return obs, nil
}
