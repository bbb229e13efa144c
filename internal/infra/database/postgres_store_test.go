package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildSelect(t *testing.T) {
	query, args := buildSelect(Query{
		Table:      "leads",
		Filters:    []Filter{Eq("user_id", "u1"), Contains("phone", "555_01"), Eq("email", nil)},
		OrderBy:    "created_at",
		Descending: true,
		Limit:      1,
	})

	assert.Equal(t,
		`SELECT * FROM "leads" WHERE "user_id" = $1 AND "phone" ILIKE '%' || $2 || '%' AND "email" IS NULL ORDER BY "created_at" DESC LIMIT 1`,
		query)
	assert.Equal(t, []any{"u1", `555\_01`}, args)
}

func TestBuildUpdateNumbersFilterPlaceholdersAfterValues(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args := buildUpdate(
		Query{Table: "profiles", Filters: []Filter{Eq("id", "p1"), NullOrAtMost("stripe_event_at", at)}},
		Row{"plan": "outreach", "stripe_event_at": at},
	)

	assert.Equal(t,
		`UPDATE "profiles" SET "plan" = $1, "stripe_event_at" = $2 WHERE "id" = $3 AND ("stripe_event_at" IS NULL OR "stripe_event_at" <= $4)`,
		query)
	assert.Len(t, args, 4)
}

func TestBuildUpdateWithStatusSet(t *testing.T) {
	query, args := buildUpdate(
		Query{Table: "leads", Filters: []Filter{Eq("id", "l1"), In("status", "new", "contacted")}},
		Row{"status": "interested"},
	)

	assert.Equal(t,
		`UPDATE "leads" SET "status" = $1 WHERE "id" = $2 AND "status" = ANY($3)`,
		query)
	assert.Len(t, args, 3)
}

func TestBuildUpsert(t *testing.T) {
	query, args := buildInsert("meetings", Row{"external_ref": "r1", "id": "m1", "notes": "hi"}, "external_ref")

	assert.Equal(t,
		`INSERT INTO "meetings" ("external_ref", "id", "notes") VALUES ($1, $2, $3) ON CONFLICT ("external_ref") DO UPDATE SET "notes" = EXCLUDED."notes" RETURNING *`,
		query)
	assert.Equal(t, []any{"r1", "m1", "hi"}, args)
}
