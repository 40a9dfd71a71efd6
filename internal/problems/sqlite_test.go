package problems_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/openamc/amctrack/internal/models"
	"github.com/openamc/amctrack/internal/problems"
	"github.com/openamc/amctrack/internal/testutil"
)

func seedProblem(id, source, topic string, year int, difficulty float64) models.Problem {
	return models.Problem{
		ID:         id,
		Source:     source,
		Year:       year,
		Number:     1,
		Topic:      topic,
		Difficulty: difficulty,
		Statement:  "What is 1+1?",
		Choices:    []string{"1", "2", "3", "4", "5"},
		Answer:     "B",
	}
}

func TestInsertAndGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := problems.NewSQLiteRepository(db)
	ctx := context.Background()

	p := seedProblem("amc10-2020-1", "AMC10", "algebra", 2020, 1.5)
	require.NoError(t, repo.Insert(ctx, p))

	got, err := repo.Get(ctx, "amc10-2020-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "algebra", got.Topic)
	assert.Equal(t, 1.5, got.Difficulty)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, got.Choices)
}

func TestGet_MissingReturnsNil(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := problems.NewSQLiteRepository(db)

	got, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInsert_UpsertsOnConflict(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := problems.NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, seedProblem("p1", "AMC10", "algebra", 2020, 1.5)))
	require.NoError(t, repo.Insert(ctx, seedProblem("p1", "AMC10", "geometry", 2020, 2.5)))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "geometry", got.Topic)

	count, err := repo.Count(ctx, models.ProblemFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestList_FilterAndOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := problems.NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := repo.InsertBatch(ctx, []models.Problem{
		seedProblem("a", "AMC12", "algebra", 2021, 3.0),
		seedProblem("b", "AMC10", "algebra", 2020, 1.5),
		seedProblem("c", "AMC10", "geometry", 2021, 2.0),
	})
	require.NoError(t, err)

	list, err := repo.List(ctx, models.ProblemFilter{Source: "AMC10"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID, "ordered by source, year, number")

	list, err = repo.List(ctx, models.ProblemFilter{MinDifficulty: 2.0, MaxDifficulty: 3.0})
	require.NoError(t, err)
	require.Len(t, list, 2)

	list, err = repo.List(ctx, models.ProblemFilter{Topic: "geometry", Year: 2021})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c", list[0].ID)
}

func TestRandom_RespectsFilterAndLimit(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := problems.NewSQLiteRepository(db)
	ctx := context.Background()

	var batch []models.Problem
	for _, id := range []string{"a", "b", "c", "d"} {
		batch = append(batch, seedProblem(id, "AMC10", "algebra", 2020, 1.5))
	}
	batch = append(batch, seedProblem("e", "AMC12", "algebra", 2020, 3.0))
	_, err := repo.InsertBatch(ctx, batch)
	require.NoError(t, err)

	got, err := repo.Random(ctx, models.ProblemFilter{Source: "AMC10"}, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, p := range got {
		assert.Equal(t, "AMC10", p.Source)
	}
}

func TestTopics_DistinctSorted(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := problems.NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := repo.InsertBatch(ctx, []models.Problem{
		seedProblem("a", "AMC10", "geometry", 2020, 1),
		seedProblem("b", "AMC10", "algebra", 2020, 1),
		seedProblem("c", "AMC10", "algebra", 2021, 1),
	})
	require.NoError(t, err)

	topics, err := repo.Topics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"algebra", "geometry"}, topics)
}
