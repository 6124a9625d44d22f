package grants

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, SeedSamples(store))
	return NewService(store)
}

func TestAllGrantsSeeded(t *testing.T) {
	svc := newTestService(t)

	all, err := svc.AllGrants()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGrantByID(t *testing.T) {
	svc := newTestService(t)

	g, err := svc.GrantByID("grant_002")
	require.NoError(t, err)
	assert.Equal(t, "Community Impact Fund", g.Title)

	_, err = svc.GrantByID("grant_999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchGrants(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		name    string
		filters SearchFilters
		wantIDs []string
	}{
		{
			name:    "no filters sorts by success score",
			filters: SearchFilters{},
			wantIDs: []string{"grant_002", "grant_001", "grant_003"},
		},
		{
			name:    "category",
			filters: SearchFilters{Category: CategoryYouth},
			wantIDs: []string{"grant_003"},
		},
		{
			name:    "min amount",
			filters: SearchFilters{MinAmount: 30000},
			wantIDs: []string{"grant_001"},
		},
		{
			name:    "max amount",
			filters: SearchFilters{MaxAmount: 20000},
			wantIDs: []string{"grant_003"},
		},
		{
			name:    "keywords in description",
			filters: SearchFilters{Keywords: "social impact"},
			wantIDs: []string{"grant_002"},
		},
		{
			name:    "deadline before",
			filters: SearchFilters{DeadlineBefore: time.Now().Add(40 * 24 * time.Hour)},
			wantIDs: []string{"grant_001"},
		},
		{
			name:    "no matches",
			filters: SearchFilters{Keywords: "submarine"},
			wantIDs: []string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			results, err := svc.SearchGrants(tc.filters)
			require.NoError(t, err)

			gotIDs := []string{}
			for _, g := range results {
				gotIDs = append(gotIDs, g.ID)
			}
			assert.Equal(t, tc.wantIDs, gotIDs)
		})
	}
}

func TestRecommend(t *testing.T) {
	svc := newTestService(t)

	recs, err := svc.Recommend(Profile{
		PreferredCategories: []Category{CategoryArtsCulture},
		MinAmount:           10000,
		MaxAmount:           60000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	// The preferred-category grant scores highest: 0.3 (category) + 0.4
	// (amount range) + 0.2 (deadline within 30 days) + 0.085.
	assert.Equal(t, "grant_001", recs[0].ID)
}

func TestRecommendCutoff(t *testing.T) {
	svc := newTestService(t)

	// No category preference and no amount range leaves only the deadline
	// and success-score contributions, which never clear the 0.3 cutoff.
	recs, err := svc.Recommend(Profile{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestApplicationLifecycle(t *testing.T) {
	svc := newTestService(t)

	app, err := svc.CreateApplication("grant_001", "Documentary pitch", "alex", []string{"sam"})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, app.Status)
	assert.Equal(t, PriorityMedium, app.Priority)
	assert.NotEmpty(t, app.ID)
	assert.Nil(t, app.SubmittedAt)

	// Assigned user and collaborator both see it; others do not.
	for _, user := range []string{"alex", "sam"} {
		apps, err := svc.ApplicationsByUser(user)
		require.NoError(t, err)
		assert.Len(t, apps, 1, "user %s should see the application", user)
	}
	apps, err := svc.ApplicationsByUser("jordan")
	require.NoError(t, err)
	assert.Empty(t, apps)

	require.NoError(t, svc.Submit(app.ID))

	updated, err := svc.ApplicationByID(app.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, updated.Status)
	require.NotNil(t, updated.SubmittedAt)
}

func TestApplicationReadsAreSnapshots(t *testing.T) {
	svc := newTestService(t)

	app, err := svc.CreateApplication("grant_001", "Documentary pitch", "alex", nil)
	require.NoError(t, err)

	before, err := svc.ApplicationByID(app.ID)
	require.NoError(t, err)

	_, err = svc.UpdateAnswer(app.ID, "q1", "Wide reach", "alex")
	require.NoError(t, err)

	// The earlier read must not see the later write.
	assert.Empty(t, before.Answers)

	after, err := svc.ApplicationByID(app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wide reach", after.Answers["q1"])
}

func TestConcurrentAnswerUpdatesAndReads(t *testing.T) {
	svc := newTestService(t)

	app, err := svc.CreateApplication("grant_001", "Documentary pitch", "alex", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := svc.UpdateAnswer(app.ID, fmt.Sprintf("q%d", i), "draft text", "alex")
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			apps, err := svc.ApplicationsByUser("alex")
			assert.NoError(t, err)
			for _, a := range apps {
				_, err := json.Marshal(a)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	got, err := svc.ApplicationByID(app.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.Answers)
}

func TestAnswerVersioning(t *testing.T) {
	svc := newTestService(t)

	app, err := svc.CreateApplication("grant_001", "Documentary pitch", "alex", nil)
	require.NoError(t, err)

	first, err := svc.UpdateAnswer(app.ID, "What is the impact?", "Draft answer", "alex")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	second, err := svc.UpdateAnswer(app.ID, "What is the impact?", "Refined answer", "sam")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)

	other, err := svc.UpdateAnswer(app.ID, "What is the budget?", "About $40k", "alex")
	require.NoError(t, err)
	assert.Equal(t, 1, other.Version, "versions are tracked per question")

	answers, err := svc.Answers(app.ID)
	require.NoError(t, err)
	assert.Len(t, answers, 3, "every version is retained")

	updated, err := svc.ApplicationByID(app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Refined answer", updated.Answers["What is the impact?"])
	assert.Equal(t, "About $40k", updated.Answers["What is the budget?"])
}

func TestAnswerUnknownApplication(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.UpdateAnswer("missing", "q", "a", "alex")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComments(t *testing.T) {
	svc := newTestService(t)

	app, err := svc.CreateApplication("grant_001", "Documentary pitch", "alex", nil)
	require.NoError(t, err)

	_, err = svc.AddComment(app.ID, "Looks strong, tighten the budget section", "sam")
	require.NoError(t, err)
	_, err = svc.AddComment(app.ID, "Done", "alex")
	require.NoError(t, err)

	comments, err := svc.Comments(app.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "sam", comments[0].Author)

	_, err = svc.AddComment("missing", "hello", "sam")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatsForUser(t *testing.T) {
	svc := newTestService(t)

	a, err := svc.CreateApplication("grant_001", "First", "alex", nil)
	require.NoError(t, err)
	_, err = svc.CreateApplication("grant_002", "Second", "alex", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Submit(a.ID))

	stats, err := svc.StatsForUser("alex")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalApplications)
	assert.Equal(t, 1, stats.Draft)
	assert.Equal(t, 1, stats.Submitted)
}
