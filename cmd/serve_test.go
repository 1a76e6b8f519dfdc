package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/innovategy/innosystem/db"
	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/dbtest"
)

func Test_allJobTypeNames(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	models, err := data.NewModels(pool)
	require.NoError(t, err)

	data.CreateJobTypeFixture(t, ctx, pool, "resize-image", data.ProcessorTypeSync, 1000)
	data.CreateJobTypeFixture(t, ctx, pool, "transcode-video", data.ProcessorTypeAsync, 2000)

	names := allJobTypeNames(ctx, models)
	require.Len(t, names, 2)
	require.ElementsMatch(t, []string{"resize-image", "transcode-video"}, names)
}
