package types_test

import (
	"testing"
	"time"

	types "github.com/guardiansafety/aegis/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAreaRank(t *testing.T) {
	Convey("Given an AreaRank struct", t, func() {
		Convey("When creating a new row", func() {
			scoredAt := time.Date(2025, 6, 12, 22, 30, 0, 0, time.UTC)

			row := types.AreaRank{
				Rank:       1,
				AreaID:     "40.712:-74.006",
				Latitude:   40.712,
				Longitude:  -74.006,
				Score:      23,
				RiskLevel:  "high",
				Confidence: 85,
				ScoredAt:   scoredAt,
			}

			Convey("Then it should have the correct values", func() {
				So(row.Rank, ShouldEqual, 1)
				So(row.AreaID, ShouldEqual, "40.712:-74.006")
				So(row.Latitude, ShouldEqual, 40.712)
				So(row.Longitude, ShouldEqual, -74.006)
				So(row.Score, ShouldEqual, 23)
				So(row.RiskLevel, ShouldEqual, "high")
				So(row.Confidence, ShouldEqual, 85)
				So(row.Degraded, ShouldBeFalse)
				So(row.ScoredAt.Equal(scoredAt), ShouldBeTrue)
			})
		})

		Convey("When creating a row with zero values", func() {
			row := types.AreaRank{}

			Convey("Then it should have default values", func() {
				So(row.Rank, ShouldEqual, 0)
				So(row.AreaID, ShouldEqual, "")
				So(row.Score, ShouldEqual, 0)
				So(row.RiskLevel, ShouldEqual, "")
				So(row.Confidence, ShouldEqual, 0)
				So(row.ScoredAt.IsZero(), ShouldBeTrue)
			})
		})

		Convey("When creating a row for a degraded reading", func() {
			row := types.AreaRank{
				Rank:      4,
				AreaID:    "51.507:-0.128",
				Score:     61,
				RiskLevel: "medium",
				Degraded:  true,
			}

			Convey("Then the degraded flag should survive", func() {
				So(row.Degraded, ShouldBeTrue)
			})
		})

		Convey("When creating a row at the score floor", func() {
			row := types.AreaRank{
				Rank:      1,
				AreaID:    "34.052:-118.244",
				Score:     0,
				RiskLevel: "very_high",
			}

			Convey("Then it should accept a zero score", func() {
				So(row.Score, ShouldEqual, 0)
			})
		})

		Convey("When creating a row at the score ceiling", func() {
			row := types.AreaRank{
				Rank:      250,
				AreaID:    "48.857:2.352",
				Score:     100,
				RiskLevel: "very_low",
			}

			Convey("Then it should accept the maximum score", func() {
				So(row.Score, ShouldEqual, 100)
			})
		})

		Convey("When creating a row with southern and western coordinates", func() {
			row := types.AreaRank{
				Rank:      2,
				AreaID:    "-33.869:151.209",
				Latitude:  -33.869,
				Longitude: 151.209,
				Score:     44,
			}

			Convey("Then negative latitude should be preserved", func() {
				So(row.Latitude, ShouldEqual, -33.869)
				So(row.Longitude, ShouldEqual, 151.209)
			})
		})

		Convey("When creating a row with a very deep rank", func() {
			row := types.AreaRank{
				Rank:   999999,
				AreaID: "0.000:0.000",
				Score:  100,
			}

			Convey("Then it should accept a deep rank", func() {
				So(row.Rank, ShouldEqual, 999999)
			})
		})
	})
}

func TestAreaRankOrdering(t *testing.T) {
	Convey("Given a slice of ranked areas", t, func() {
		rows := []types.AreaRank{
			{Rank: 1, AreaID: "40.712:-74.006", Score: 18, RiskLevel: "very_high"},
			{Rank: 2, AreaID: "41.878:-87.630", Score: 35, RiskLevel: "high"},
			{Rank: 3, AreaID: "34.052:-118.244", Score: 52, RiskLevel: "medium"},
			{Rank: 4, AreaID: "47.606:-122.332", Score: 71, RiskLevel: "low"},
			{Rank: 5, AreaID: "45.516:-122.677", Score: 88, RiskLevel: "very_low"},
		}

		Convey("Then ranks should be sequential from the riskiest area", func() {
			for i, row := range rows {
				So(row.Rank, ShouldEqual, i+1)
			}
		})

		Convey("And scores should ascend as ranks ascend", func() {
			for i := 0; i < len(rows)-1; i++ {
				So(rows[i].Score, ShouldBeLessThanOrEqualTo, rows[i+1].Score)
			}
		})

		Convey("And every row should name its area", func() {
			for _, row := range rows {
				So(row.AreaID, ShouldNotBeEmpty)
			}
		})

		Convey("When two areas share a score", func() {
			tied := []types.AreaRank{
				{Rank: 1, AreaID: "40.712:-74.006", Score: 30},
				{Rank: 1, AreaID: "40.713:-74.006", Score: 30},
				{Rank: 2, AreaID: "40.714:-74.006", Score: 42},
			}

			Convey("Then tied areas should carry the same rank", func() {
				So(tied[0].Rank, ShouldEqual, tied[1].Rank)
				So(tied[0].AreaID, ShouldNotEqual, tied[1].AreaID)
			})

			Convey("And the next distinct score should take the following rank", func() {
				So(tied[2].Rank, ShouldEqual, tied[0].Rank+1)
			})
		})
	})
}

func TestAreaRankEdgeCases(t *testing.T) {
	Convey("Given area rank edge cases", t, func() {
		Convey("When the area key carries full grid precision", func() {
			row := types.AreaRank{
				Rank:      1,
				AreaID:    "-0.001:-0.001",
				Latitude:  -0.001,
				Longitude: -0.001,
				Score:     55,
			}

			Convey("Then the key should keep its signs", func() {
				So(row.AreaID, ShouldContainSubstring, "-0.001")
			})
		})

		Convey("When confidence sits at the clamp boundaries", func() {
			low := types.AreaRank{Rank: 1, AreaID: "10.000:10.000", Score: 40, Confidence: 20}
			high := types.AreaRank{Rank: 2, AreaID: "11.000:11.000", Score: 60, Confidence: 95}

			Convey("Then both bounds should be representable", func() {
				So(low.Confidence, ShouldEqual, 20)
				So(high.Confidence, ShouldEqual, 95)
			})
		})

		Convey("When the scored-at timestamp is far in the past", func() {
			old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
			row := types.AreaRank{Rank: 9, AreaID: "0.000:0.000", Score: 50, ScoredAt: old}

			Convey("Then staleness should be observable from the row", func() {
				So(time.Since(row.ScoredAt), ShouldBeGreaterThan, 24*time.Hour)
			})
		})
	})
}
