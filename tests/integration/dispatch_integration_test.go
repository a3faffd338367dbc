// README: End-to-end dispatch flow against a real PostgreSQL instance.
// Skipped unless DISPATCH_TEST_DSN points at a disposable database.
package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"dispatch/internal/modules/agent"
	"dispatch/internal/modules/assignment"
	"dispatch/internal/modules/order"
	"dispatch/internal/types"
)

func testPool(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("DISPATCH_TEST_DSN"))
	if dsn == "" {
		t.Skip("DISPATCH_TEST_DSN not set, skipping database integration test")
	}
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		t.Fatalf("ping %s: %v", dsn, err)
	}
	t.Cleanup(db.Close)

	applyMigrations(t, ctx, db)
	truncateAll(t, ctx, db)
	return db
}

func applyMigrations(t *testing.T, ctx context.Context, db *pgxpool.Pool) {
	t.Helper()
	files, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.sql"))
	if err != nil || len(files) == 0 {
		t.Fatalf("locate migrations: %v", err)
	}
	sort.Strings(files)
	for _, f := range files {
		sql, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read migration %s: %v", f, err)
		}
		if _, err := db.Exec(ctx, string(sql)); err != nil {
			t.Fatalf("apply migration %s: %v", f, err)
		}
	}
}

func truncateAll(t *testing.T, ctx context.Context, db *pgxpool.Pool) {
	t.Helper()
	_, err := db.Exec(ctx, `
		TRUNCATE outbox_events, agent_location_samples, order_tracking_events, orders, agents`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return log
}

func seedAgent(t *testing.T, ctx context.Context, store *agent.Store, id types.ID) {
	t.Helper()
	err := store.Create(ctx, &agent.Agent{
		ID: id, Online: true, Status: agent.StatusActive,
		Location: &types.Point{Lat: 25.04, Lng: 121.56},
	})
	if err != nil {
		t.Fatalf("seed agent %s: %v", id, err)
	}
}

func seedOrder(t *testing.T, ctx context.Context, svc *order.Service) types.ID {
	t.Helper()
	id, err := svc.Create(ctx, order.CreateCommand{
		CustomerID:   "c1",
		RestaurantID: "r1",
		Pickup:       types.Point{Lat: 25.05, Lng: 121.55},
		Dropoff:      types.Point{Lat: 25.03, Lng: 121.52},
		Total:        types.Money{Amount: 2400, Currency: "USD"},
		Items:        []order.Item{{Name: "noodles", Quantity: 2, UnitPrice: types.Money{Amount: 1200, Currency: "USD"}}},
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return id
}

// Concurrent accepts against one order: the database row locks plus the
// guarded bind must let exactly one agent through.
func TestConcurrentAcceptExactlyOneWinner(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	db := testPool(t, ctx)
	log := quietLogger()

	agentStore := agent.NewStore(db)
	orderStore := order.NewStore(db)
	orderSvc := order.NewService(orderStore, orderStore, nil, log)
	coordinator := assignment.NewCoordinator(assignment.NewStore(db, agentStore), nil, nil, nil, log)

	const contenders = 8
	for i := 0; i < contenders; i++ {
		seedAgent(t, ctx, agentStore, types.ID(fmt.Sprintf("agent-%d", i)))
	}
	orderID := seedOrder(t, ctx, orderSvc)

	var wg sync.WaitGroup
	errs := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		agentID := types.ID(fmt.Sprintf("agent-%d", i))
		wg.Add(1)
		go func(id types.ID) {
			defer wg.Done()
			_, err := coordinator.TryAssign(ctx, orderID, id)
			errs <- err
		}(agentID)
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		switch err {
		case nil:
			success++
		case order.ErrTaken, order.ErrNotWaiting, agent.ErrBusy:
		default:
			t.Fatalf("unexpected accept error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 winning accept, got %d", success)
	}

	var busyAgents int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM agents WHERE busy`).Scan(&busyAgents); err != nil {
		t.Fatalf("count busy: %v", err)
	}
	if busyAgents != 1 {
		t.Fatalf("expected 1 busy agent, got %d", busyAgents)
	}

	o, err := orderSvc.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if o.AgentID == nil || o.Status != order.StatusAgentAssigned || o.Tracking != order.TrackingAccepted {
		t.Fatalf("order not bound cleanly: %+v", o)
	}
	if o.AssignedAt == nil {
		t.Error("assigned_at not stamped")
	}

	var staged int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_events WHERE order_id = $1`, string(orderID)).Scan(&staged); err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if staged != 4 {
		t.Errorf("expected 4 staged assignment events, got %d", staged)
	}
}

// Full lifecycle: accept, progress to delivered, verify the terminal state
// absorbs further writes and the agent is freed for new work.
func TestDeliveryLifecycleEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	db := testPool(t, ctx)
	log := quietLogger()

	agentStore := agent.NewStore(db)
	orderStore := order.NewStore(db)
	orderSvc := order.NewService(orderStore, orderStore, nil, log)
	coordinator := assignment.NewCoordinator(assignment.NewStore(db, agentStore), nil, nil, nil, log)

	seedAgent(t, ctx, agentStore, "courier")
	seedAgent(t, ctx, agentStore, "latecomer")
	orderID := seedOrder(t, ctx, orderSvc)

	if _, err := coordinator.TryAssign(ctx, orderID, "courier"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	for _, raw := range []string{"agent_going_to_restaurant", "arrived", "picked_up", "in_transit", "delivered"} {
		if _, err := orderSvc.UpdateTracking(ctx, order.UpdateCommand{
			OrderID: orderID, ActorID: "courier", RawStatus: raw,
		}); err != nil {
			t.Fatalf("transition %q: %v", raw, err)
		}
	}

	o, err := orderSvc.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if o.Status != order.StatusDelivered || o.Tracking != order.TrackingDelivered {
		t.Fatalf("final state %s/%s", o.Status, o.Tracking)
	}
	if o.PickedUpAt == nil || o.DeliveredAt == nil {
		t.Error("lifecycle timestamps missing")
	}

	courier, err := agentStore.Get(ctx, "courier")
	if err != nil {
		t.Fatalf("reload courier: %v", err)
	}
	if courier.Busy {
		t.Error("delivery must free the courier")
	}

	// Terminal state absorbs both late progress reports and late accepts.
	if _, err := orderSvc.UpdateTracking(ctx, order.UpdateCommand{
		OrderID: orderID, ActorID: "courier", RawStatus: "in_transit",
	}); err != order.ErrTerminal {
		t.Fatalf("late report: expected ErrTerminal, got %v", err)
	}
	if _, err := coordinator.TryAssign(ctx, orderID, "latecomer"); err != order.ErrTaken {
		t.Fatalf("late accept: expected ErrTaken, got %v", err)
	}

	var events int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM order_tracking_events WHERE order_id = $1`, string(orderID)).Scan(&events); err != nil {
		t.Fatalf("count events: %v", err)
	}
	// accepted + five progress reports
	if events != 6 {
		t.Errorf("expected 6 audit events, got %d", events)
	}
}

// Cancellation must release both sides: the courier goes idle and the order
// row loses its agent binding, so location lookups stop resolving.
func TestCancelReleasesAgentAndBinding(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db := testPool(t, ctx)
	log := quietLogger()

	agentStore := agent.NewStore(db)
	orderStore := order.NewStore(db)
	orderSvc := order.NewService(orderStore, orderStore, nil, log)
	coordinator := assignment.NewCoordinator(assignment.NewStore(db, agentStore), nil, nil, nil, log)

	seedAgent(t, ctx, agentStore, "courier")
	orderID := seedOrder(t, ctx, orderSvc)
	if _, err := coordinator.TryAssign(ctx, orderID, "courier"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	reason := "customer changed their mind"
	o, err := orderSvc.UpdateTracking(ctx, order.UpdateCommand{
		OrderID: orderID, RawStatus: "cancelled", Reason: &reason,
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if o.AgentID != nil {
		t.Error("cancelled order still bound on the returned copy")
	}

	var agentID *string
	if err := db.QueryRow(ctx, `SELECT agent_id FROM orders WHERE id = $1`, string(orderID)).Scan(&agentID); err != nil {
		t.Fatalf("reload binding: %v", err)
	}
	if agentID != nil {
		t.Errorf("cancelled order row still bound to %s", *agentID)
	}

	courier, err := agentStore.Get(ctx, "courier")
	if err != nil {
		t.Fatalf("reload courier: %v", err)
	}
	if courier.Busy {
		t.Error("cancellation must free the courier")
	}

	if _, bound, err := orderStore.AgentIDByOrder(ctx, orderID); err != nil || bound {
		t.Fatalf("location resolution must see no agent, got bound=%v err=%v", bound, err)
	}
}

// A reject leaves the order open; a later accept by the same agent works.
func TestRejectThenAccept(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db := testPool(t, ctx)
	log := quietLogger()

	agentStore := agent.NewStore(db)
	orderStore := order.NewStore(db)
	orderSvc := order.NewService(orderStore, orderStore, nil, log)
	coordinator := assignment.NewCoordinator(assignment.NewStore(db, agentStore), nil, nil, nil, log)

	seedAgent(t, ctx, agentStore, "courier")
	orderID := seedOrder(t, ctx, orderSvc)

	if err := coordinator.Reject(ctx, orderID, "courier", "taking a break"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	o, err := orderSvc.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if o.AgentID != nil || o.Status != order.StatusWaitingForAgent {
		t.Fatalf("reject must not mutate the order: %+v", o)
	}

	if _, err := coordinator.TryAssign(ctx, orderID, "courier"); err != nil {
		t.Fatalf("accept after reject: %v", err)
	}
}
