//go:build ruleguard

// Package gorules holds project lint rules, run through gocritic's ruleguard checker.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// PackageLevelLogger detects module loggers captured at package init.
//
// A logger taken before logger.SetGlobal runs keeps the fallback console
// handler for the life of the process. Resolve it on use instead:
//
//	func getLogger() logger.Logger {
//	    return logger.Global().Module("monitor")
//	}
func PackageLevelLogger(m dsl.Matcher) {
	m.Match(
		`var $_ = logger.Global().Module($_)`,
		`var $_ logger.Logger = logger.Global().Module($_)`,
	).
		Report(`resolve module loggers lazily with a getLogger() function`)
}

// DetachedSinkContext detects sink calls made with a fresh background
// context. Deliveries must observe the caller's cancellation; shutdown
// paths use context.WithoutCancel(ctx).
func DetachedSinkContext(m dsl.Matcher) {
	m.Match(
		`$n.Notify(context.Background(), $*_)`,
		`$n.PageTrigger(context.Background(), $*_)`,
		`$n.PageResolve(context.Background(), $*_)`,
	).
		Where(!m.File().Name.Matches(`_test\.go$`)).
		Report(`pass the caller's context to $n, or context.WithoutCancel(ctx) on shutdown`)
}

// PlainErrorfInSinks detects fmt.Errorf at sink boundaries, where errors
// must carry a component and category for logs, metrics and telemetry.
func PlainErrorfInSinks(m dsl.Matcher) {
	m.Match(`return fmt.Errorf($*args)`).
		Where(m.File().PkgPath.Matches(`internal/(notification|ingest|secrets)$`) &&
			!m.File().Name.Matches(`_test\.go$`)).
		Report(`build sink errors with errors.Newf(...).Component(...).Category(...).Build()`)
}

// SleepInTests detects time.Sleep in tests. Trackers take an injectable
// clock and asynchronous results are awaited with require.Eventually or
// testutil.Receive.
func SleepInTests(m dsl.Matcher) {
	m.Match(`time.Sleep($_)`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report(`advance a fake clock or wait with require.Eventually instead of time.Sleep`)
}

// TestingContext suggests t.Context() over a background context in tests.
func TestingContext(m dsl.Matcher) {
	m.Match(
		`$ctx := context.Background()`,
		`$ctx, $cancel := context.WithCancel(context.Background())`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report(`use t.Context() (Go 1.24+), which is cancelled when the test ends`)
}
