//go:build integration

package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/promptwatch/promptwatch-engine/pkg/database"
	"github.com/promptwatch/promptwatch-engine/pkg/models"
	"github.com/promptwatch/promptwatch-engine/pkg/testhelpers"
)

func createTestTemplate(t *testing.T, ctx context.Context) *models.PromptTemplate {
	t.Helper()
	tpl := testTemplate("hash-" + uuid.NewString())
	if err := NewTemplateRepository().Create(ctx, tpl); err != nil {
		t.Fatalf("failed to create template fixture: %v", err)
	}
	return tpl
}

func testVersion(templateID uuid.UUID, key string) *models.PromptVersion {
	return &models.PromptVersion{
		TemplateID:         templateID,
		Provider:           "openai",
		ProviderVersionKey: key,
		ModelID:            "gpt-4o",
		LastSeenAt:         time.Now(),
	}
}

func TestVersionRepository_UpsertCreatesThenTouches(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	ctx := workspaceCtx(t, engineDB.DB, uuid.New(), uuid.New())
	tpl := createTestTemplate(t, ctx)
	repo := NewVersionRepository()

	v1 := testVersion(tpl.ID, "fp_abc")
	if err := repo.Upsert(ctx, v1); err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}
	if v1.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}

	later := time.Now().Add(time.Hour)
	v2 := testVersion(tpl.ID, "fp_abc")
	v2.LastSeenAt = later
	if err := repo.Upsert(ctx, v2); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	if v2.ID != v1.ID {
		t.Errorf("same version key must reuse the row: got %s want %s", v2.ID, v1.ID)
	}
	if !v2.LastSeenAt.After(v1.LastSeenAt) {
		t.Errorf("last_seen_at must advance: first %v second %v", v1.LastSeenAt, v2.LastSeenAt)
	}
	if !v2.FirstSeenAt.Equal(v1.FirstSeenAt) {
		t.Errorf("first_seen_at must not change: first %v second %v", v1.FirstSeenAt, v2.FirstSeenAt)
	}
}

func TestVersionRepository_LastSeenNeverRegresses(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	ctx := workspaceCtx(t, engineDB.DB, uuid.New(), uuid.New())
	tpl := createTestTemplate(t, ctx)
	repo := NewVersionRepository()

	newer := testVersion(tpl.ID, "fp_abc")
	newer.LastSeenAt = time.Now().Add(time.Hour)
	if err := repo.Upsert(ctx, newer); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	older := testVersion(tpl.ID, "fp_abc")
	older.LastSeenAt = time.Now()
	if err := repo.Upsert(ctx, older); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// GREATEST keeps the later sighting.
	if older.LastSeenAt.Before(newer.LastSeenAt.Add(-time.Second)) {
		t.Errorf("last_seen_at regressed: got %v want >= %v", older.LastSeenAt, newer.LastSeenAt)
	}
}

func TestVersionRepository_FingerprintCapturedAtKeepsEarliest(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	ctx := workspaceCtx(t, engineDB.DB, uuid.New(), uuid.New())
	tpl := createTestTemplate(t, ctx)
	repo := NewVersionRepository()

	// First sighting without a fingerprint capture.
	v1 := testVersion(tpl.ID, "fp_abc")
	if err := repo.Upsert(ctx, v1); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if v1.FingerprintCapturedAt != nil {
		t.Fatal("no capture expected yet")
	}

	// Second sighting backfills the capture time.
	captured := time.Now()
	v2 := testVersion(tpl.ID, "fp_abc")
	v2.FingerprintCapturedAt = &captured
	if err := repo.Upsert(ctx, v2); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if v2.FingerprintCapturedAt == nil {
		t.Fatal("capture time must be recorded")
	}

	// A later capture must not overwrite the first one.
	muchLater := captured.Add(24 * time.Hour)
	v3 := testVersion(tpl.ID, "fp_abc")
	v3.FingerprintCapturedAt = &muchLater
	if err := repo.Upsert(ctx, v3); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if v3.FingerprintCapturedAt.Sub(captured).Abs() > time.Second {
		t.Errorf("earliest capture must win: got %v want %v", v3.FingerprintCapturedAt, captured)
	}
}

func TestVersionRepository_ConcurrentUpsertSingleRow(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	orgID, workspaceID := uuid.New(), uuid.New()
	setupCtx := workspaceCtx(t, engineDB.DB, orgID, workspaceID)
	tpl := createTestTemplate(t, setupCtx)
	repo := NewVersionRepository()

	const n = 4
	var wg sync.WaitGroup
	errs := make([]error, n)
	ids := make([]uuid.UUID, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scope, err := engineDB.DB.WithWorkspace(context.Background(), orgID, workspaceID)
			if err != nil {
				errs[i] = err
				return
			}
			defer scope.Close()
			ctx := database.SetWorkspaceScope(context.Background(), scope)

			v := testVersion(tpl.ID, "fp_race")
			errs[i] = repo.Upsert(ctx, v)
			ids[i] = v.ID
		}(i)
	}
	wg.Wait()

	// Every call must succeed; losers merge into the winner's row.
	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent Upsert %d failed: %v", i, err)
		}
	}
	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("all callers must land on one row: %v", ids)
		}
	}

	versions, err := repo.ListByTemplate(setupCtx, tpl.ID)
	if err != nil {
		t.Fatalf("ListByTemplate failed: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("expected 1 version row, got %d", len(versions))
	}
}

func TestVersionRepository_DistinctKeysDistinctRows(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	ctx := workspaceCtx(t, engineDB.DB, uuid.New(), uuid.New())
	tpl := createTestTemplate(t, ctx)
	repo := NewVersionRepository()

	for _, key := range []string{"fp_v1", "fp_v2", models.ProviderVersionUnknown} {
		if err := repo.Upsert(ctx, testVersion(tpl.ID, key)); err != nil {
			t.Fatalf("Upsert(%s) failed: %v", key, err)
		}
	}

	versions, err := repo.ListByTemplate(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("ListByTemplate failed: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 version rows, got %d", len(versions))
	}
}
