// Package subscription implements the recurring billing core for a SaaS
// product: subscription lifecycle management, periodic billing cycles with
// retry and delinquency handling, and cancellation with cooling-off and
// prorated refunds.
//
// # Architecture
//
// The package follows a service-oriented architecture with clear separation
// of concerns:
//
//   - Service: subscriber- and operator-facing lifecycle operations,
//     including Cancel, the cancellation and refund engine
//   - Runner: the periodic billing cycle processor
//   - Store: durable persistence with per-row read-modify-write atomicity
//   - PaymentGateway: minimal charge/refund interface to the payment provider
//   - Notifier: subscriber-facing notifications
//   - EntitlementCache: bounded-TTL cache of entitlement answers
//   - PlanSource: loads the fixed plan price table
//
// Every collaborator ships with at least two implementations: a production
// one (PostgreSQL store, Paddle gateway, Postmark-backed email notifier,
// Redis entitlement cache) and an in-memory or no-op one for development
// and tests. Disabled collaborators are explicit implementations selected
// by configuration, never nil checks scattered through the call sites.
//
// # Subscription lifecycle
//
// A subscription starts active with its next charge date one billing period
// after the start date. The billing runner charges every due subscription;
// after RetryLimit consecutive failed attempts the subscription is marked
// delinquent, which suspends entitlement until an operator reactivates it.
// Cancellation is terminal: the row keeps a full audit trail of the reason,
// actor, refund tier and gateway references.
//
// # Refunds
//
// Cancellations within the cooling-off period after the start date refund
// the full plan price. Later cancellations refund the unused whole days of
// the current billing period, prorated against the plan price. The
// cancellation write always precedes the gateway refund call and survives
// its failure.
//
// # Quick start
//
//	store := subscription.NewMemoryStore()
//	src := subscription.NewInMemSource(subscription.DefaultPlans()...)
//
//	svc, err := subscription.NewService(ctx, src, store, gateway, notifier,
//		subscription.WithLogger(log),
//		subscription.WithEntitlementCache(subscription.NewMemoryEntitlementCache(10_000, 5*time.Minute)),
//	)
//	if err != nil {
//		return err
//	}
//
//	sub, err := svc.Create(ctx, subscriberID, "pro")
//	if err != nil {
//		return err
//	}
//
//	runner, err := subscription.NewRunner(ctx, src, store, gateway,
//		subscription.WithRunnerLogger(log),
//		subscription.WithSchedule(subscription.DailyAt(3, 0)),
//	)
//	if err != nil {
//		return err
//	}
//	go runner.Start(ctx)
package subscription
