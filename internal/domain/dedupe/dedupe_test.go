package dedupe_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	dedupe "github.com/guardiansafety/aegis/internal/domain/dedupe"
)

func TestInMemoryGuard(t *testing.T) {
	Convey("Given a new replay guard", t, func() {
		Convey("When creating a guard with default options", func() {
			g := dedupe.NewInMemoryGuard()

			Convey("Then it should start empty", func() {
				So(g, ShouldNotBeNil)
				So(g.Size(), ShouldEqual, 0)
			})
		})

		Convey("When claiming request IDs", func() {
			g := dedupe.NewInMemoryGuard()
			ctx := context.Background()

			Convey("And the request is new", func() {
				alertID, seen := g.SeenAndRecord(ctx, "req-1")

				Convey("Then the claim is fresh", func() {
					So(seen, ShouldBeFalse)
					So(alertID, ShouldBeEmpty)
					So(g.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the request is replayed before the outcome is bound", func() {
				g.SeenAndRecord(ctx, "req-1")

				alertID, seen := g.SeenAndRecord(ctx, "req-1")

				Convey("Then the replay is flagged with no alert yet", func() {
					So(seen, ShouldBeTrue)
					So(alertID, ShouldBeEmpty)
					So(g.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the outcome was bound", func() {
				g.SeenAndRecord(ctx, "req-1")
				g.Bind(ctx, "req-1", "alert-42")

				alertID, seen := g.SeenAndRecord(ctx, "req-1")

				Convey("Then the replay surfaces the original alert", func() {
					So(seen, ShouldBeTrue)
					So(alertID, ShouldEqual, "alert-42")
				})
			})

			Convey("And binding an unclaimed request", func() {
				g.Bind(ctx, "never-claimed", "alert-9")

				Convey("Then nothing is remembered", func() {
					So(g.Size(), ShouldEqual, 0)
					_, seen := g.SeenAndRecord(ctx, "never-claimed")
					So(seen, ShouldBeFalse)
				})
			})
		})

		Convey("When unrecording claims", func() {
			g := dedupe.NewInMemoryGuard()
			ctx := context.Background()

			Convey("And the claim exists", func() {
				g.SeenAndRecord(ctx, "req-1")
				So(g.Size(), ShouldEqual, 1)

				g.Unrecord(ctx, "req-1")

				Convey("Then the request can be retried", func() {
					So(g.Size(), ShouldEqual, 0)

					_, seen := g.SeenAndRecord(ctx, "req-1")
					So(seen, ShouldBeFalse)
				})
			})

			Convey("And the claim doesn't exist", func() {
				g.Unrecord(ctx, "nonexistent")

				Convey("Then the size is untouched", func() {
					So(g.Size(), ShouldEqual, 0)
				})
			})

			Convey("And unrecording wipes the bound alert too", func() {
				g.SeenAndRecord(ctx, "req-1")
				g.Bind(ctx, "req-1", "alert-42")
				g.Unrecord(ctx, "req-1")

				alertID, seen := g.SeenAndRecord(ctx, "req-1")

				Convey("Then the fresh claim starts clean", func() {
					So(seen, ShouldBeFalse)
					So(alertID, ShouldBeEmpty)
				})
			})
		})

		Convey("When using bounded mode with eviction", func() {
			g := dedupe.NewInMemoryGuard(dedupe.WithMaxSize(3))
			ctx := context.Background()

			Convey("And the guard is at capacity", func() {
				for _, id := range []string{"req-1", "req-2", "req-3"} {
					_, seen := g.SeenAndRecord(ctx, id)
					So(seen, ShouldBeFalse)
				}
				So(g.Size(), ShouldEqual, 3)

				_, seen := g.SeenAndRecord(ctx, "req-4")

				Convey("Then the oldest claim is evicted for the new one", func() {
					So(seen, ShouldBeFalse)
					So(g.Size(), ShouldEqual, 3)

					// req-1 was the oldest, so it claims fresh again
					_, replayed := g.SeenAndRecord(ctx, "req-1")
					So(replayed, ShouldBeFalse)
					So(g.Size(), ShouldEqual, 3)
				})
			})
		})

		Convey("When using unbounded mode", func() {
			g := dedupe.NewInMemoryGuard(dedupe.WithMaxSize(0))
			ctx := context.Background()

			Convey("And many requests are claimed", func() {
				const numRequests = 1000
				for i := 0; i < numRequests; i++ {
					_, seen := g.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i))
					So(seen, ShouldBeFalse)
				}

				Convey("Then every claim is retained", func() {
					So(g.Size(), ShouldEqual, int64(numRequests))

					for i := 0; i < numRequests; i++ {
						_, seen := g.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i))
						So(seen, ShouldBeTrue)
					}
				})
			})
		})
	})
}

func TestGuardConcurrency(t *testing.T) {
	Convey("Given a guard under concurrent access", t, func() {
		g := dedupe.NewInMemoryGuard(dedupe.WithMaxSize(1000))
		ctx := context.Background()
		const numGoroutines = 10
		const requestsPerGoroutine = 100

		Convey("When multiple goroutines claim distinct requests", func() {
			var wg sync.WaitGroup
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(goroutineID int) {
					defer wg.Done()
					for j := 0; j < requestsPerGoroutine; j++ {
						id := fmt.Sprintf("req-%d-%d", goroutineID, j)
						g.SeenAndRecord(ctx, id)
						g.Bind(ctx, id, "alert-"+id)
					}
				}(i)
			}
			wg.Wait()

			Convey("Then every claim lands exactly once with its binding", func() {
				So(g.Size(), ShouldEqual, int64(numGoroutines*requestsPerGoroutine))

				alertID, seen := g.SeenAndRecord(ctx, "req-3-7")
				So(seen, ShouldBeTrue)
				So(alertID, ShouldEqual, "alert-req-3-7")
			})
		})

		Convey("When multiple goroutines race on the same request", func() {
			const racers = 20
			fresh := make(chan bool, racers)

			var wg sync.WaitGroup
			for i := 0; i < racers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, seen := g.SeenAndRecord(ctx, "req-contended")
					fresh <- !seen
				}()
			}
			wg.Wait()
			close(fresh)

			Convey("Then exactly one racer wins the claim", func() {
				winners := 0
				for won := range fresh {
					if won {
						winners++
					}
				}
				So(winners, ShouldEqual, 1)
			})
		})

		Convey("When claims are unrecorded concurrently", func() {
			const numRequests = 500
			for i := 0; i < numRequests; i++ {
				g.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i))
			}
			So(g.Size(), ShouldEqual, int64(numRequests))

			var wg sync.WaitGroup
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(goroutineID int) {
					defer wg.Done()
					per := numRequests / numGoroutines
					for j := 0; j < per; j++ {
						g.Unrecord(ctx, fmt.Sprintf("req-%d", goroutineID*per+j))
					}
				}(i)
			}
			wg.Wait()

			Convey("Then the guard drains to empty", func() {
				So(g.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestGuardEdgeCases(t *testing.T) {
	Convey("Given guard edge cases", t, func() {
		ctx := context.Background()

		Convey("When claiming an empty request ID", func() {
			g := dedupe.NewInMemoryGuard()

			_, seen := g.SeenAndRecord(ctx, "")

			Convey("Then it is tracked like any other", func() {
				So(seen, ShouldBeFalse)
				So(g.Size(), ShouldEqual, 1)

				_, again := g.SeenAndRecord(ctx, "")
				So(again, ShouldBeTrue)
			})
		})

		Convey("When claiming a very long request ID", func() {
			g := dedupe.NewInMemoryGuard()

			long := strings.Repeat("a", 10000)
			_, seen := g.SeenAndRecord(ctx, long)

			Convey("Then it is handled", func() {
				So(seen, ShouldBeFalse)

				_, again := g.SeenAndRecord(ctx, long)
				So(again, ShouldBeTrue)
			})
		})

		Convey("When the bound is a single claim", func() {
			g := dedupe.NewInMemoryGuard(dedupe.WithMaxSize(1))

			_, first := g.SeenAndRecord(ctx, "req-1")
			So(first, ShouldBeFalse)
			So(g.Size(), ShouldEqual, 1)

			// Second claim evicts the first
			_, second := g.SeenAndRecord(ctx, "req-2")
			So(second, ShouldBeFalse)
			So(g.Size(), ShouldEqual, 1)

			Convey("Then the evicted request claims fresh again", func() {
				_, again := g.SeenAndRecord(ctx, "req-1")
				So(again, ShouldBeFalse)
				So(g.Size(), ShouldEqual, 1)
			})
		})

		Convey("When max size is negative", func() {
			g := dedupe.NewInMemoryGuard(dedupe.WithMaxSize(-1))

			Convey("Then the guard is unbounded", func() {
				const numRequests = 1000
				for i := 0; i < numRequests; i++ {
					_, seen := g.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i))
					So(seen, ShouldBeFalse)
				}

				So(g.Size(), ShouldEqual, int64(numRequests))
			})
		})
	})
}
