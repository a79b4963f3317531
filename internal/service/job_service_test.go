package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/pkg/queue"
	"github.com/qs3c/research_go_server/internal/repository"
	"github.com/qs3c/research_go_server/internal/testutil"
)

func TestJobService_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	q := queue.NewQueue(rdb, "test:generation")

	svc := NewJobService(repository.NewJobRepository(db), repository.NewProjectRepository(db), q, zap.NewNop())
	user := testutil.TestUser(t, db)
	project := testutil.TestProject(t, db, user.ID)

	resp, err := svc.CreateJob(context.Background(), user.ID, &dto.CreateJobRequest{
		Section:          "introduction",
		Title:            "T",
		PreviousSections: map[string]string{"abstract": "A"},
		ProjectID:        project.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobQueued, resp.Status)

	msg, err := q.Pop(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, resp.JobID, msg.JobID)
	assert.Equal(t, "A", msg.PreviousSections["abstract"])

	job, err := svc.GetJob(user.ID, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, "introduction", job.Section)

	other := testutil.TestUser(t, db)
	_, err = svc.GetJob(other.ID, resp.JobID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobService_CreateJob_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	svc := NewJobService(repository.NewJobRepository(db), repository.NewProjectRepository(db),
		queue.NewQueue(rdb, "test:generation"), zap.NewNop())
	user := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	project := testutil.TestProject(t, db, other.ID)

	_, err := svc.CreateJob(context.Background(), user.ID, &dto.CreateJobRequest{Section: "appendix", Title: "T"})
	assert.ErrorIs(t, err, ErrInvalidSectionID)

	_, err = svc.CreateJob(context.Background(), user.ID, &dto.CreateJobRequest{Section: "abstract", Title: "T", ProjectID: project.ID})
	assert.ErrorIs(t, err, ErrProjectNotFound)

	noQueue := NewJobService(repository.NewJobRepository(db), repository.NewProjectRepository(db), nil, zap.NewNop())
	_, err = noQueue.CreateJob(context.Background(), user.ID, &dto.CreateJobRequest{Section: "abstract", Title: "T"})
	assert.ErrorIs(t, err, ErrQueueUnavailable)
}

func TestJobService_CreateJob_PushFailureMarksFailed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()
	defer rdb.Close()

	svc := NewJobService(repository.NewJobRepository(db), repository.NewProjectRepository(db),
		queue.NewQueue(rdb, "test:generation"), zap.NewNop())
	user := testutil.TestUser(t, db)

	_, err := svc.CreateJob(context.Background(), user.ID, &dto.CreateJobRequest{Section: "abstract", Title: "T"})
	assert.ErrorIs(t, err, ErrQueueUnavailable)

	var job model.GenerationJob
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&job).Error)
	assert.Equal(t, model.JobFailed, job.Status)
}

func TestJobService_CreateJob_PushFailureLogsUpdateError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()
	defer rdb.Close()

	user := testutil.TestUser(t, db)
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		_ = tx.AddError(errors.New("db down"))
	}))

	core, logs := observer.New(zap.ErrorLevel)
	svc := NewJobService(repository.NewJobRepository(db), repository.NewProjectRepository(db),
		queue.NewQueue(rdb, "test:generation"), zap.New(core))

	_, err := svc.CreateJob(context.Background(), user.ID, &dto.CreateJobRequest{Section: "abstract", Title: "T"})
	assert.ErrorIs(t, err, ErrQueueUnavailable)

	entries := logs.FilterMessage("mark job failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "db down", entries[0].ContextMap()["error"])
}
