package reconcile

import (
	"context"
	"fmt"
	"log"

	"bad-movie-engine/pkg/domain"
	"bad-movie-engine/pkg/normalize"
)

// Outcome classifies what the reconciler did with a record.
type Outcome string

const (
	Created Outcome = "created"
	Updated Outcome = "updated"
	Failed  Outcome = "failed"
)

// Result reports one record's reconciliation. ID is the datastore row id for
// Created and Updated outcomes.
type Result struct {
	Outcome Outcome
	ID      int
	Err     error
}

// Store is the slice of the datastore client the reconciler needs.
type Store interface {
	FindByKey(ctx context.Context, experiment, title string) (int, bool, error)
	Insert(ctx context.Context, fields map[string]interface{}) (int, error)
	Update(ctx context.Context, id int, fields map[string]interface{}) error
}

// Reconciler decides create-vs-update for canonical records against the
// datastore, keyed by (experiment, title).
type Reconciler struct {
	store Store
}

func New(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile upserts one record. Lookup, insert and update failures all end
// the record's reconciliation with a Failed result; there is no retry, and a
// failure never affects sibling records.
func (r *Reconciler) Reconcile(ctx context.Context, rec domain.CanonicalRecord) Result {
	experiment := normalize.CleanExperimentNumber(rec.Experiment)
	if experiment == "" {
		return Result{Outcome: Failed, Err: fmt.Errorf("record %q has no experiment number", rec.Title)}
	}

	payload := normalize.Payload(rec)

	id, found, err := r.store.FindByKey(ctx, experiment, rec.Title)
	if err != nil {
		return Result{Outcome: Failed, Err: err}
	}

	if found {
		if err := r.store.Update(ctx, id, payload); err != nil {
			return Result{Outcome: Failed, Err: err}
		}
		log.Printf("reconcile: updated row %d (experiment %s, %s)", id, experiment, rec.Title)
		return Result{Outcome: Updated, ID: id}
	}

	newID, err := r.store.Insert(ctx, payload)
	if err != nil {
		return Result{Outcome: Failed, Err: err}
	}
	log.Printf("reconcile: created row %d (experiment %s, %s)", newID, experiment, rec.Title)
	return Result{Outcome: Created, ID: newID}
}
