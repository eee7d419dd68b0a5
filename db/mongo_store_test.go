package db

import (
	"context"
	"testing"
	"time"

	"codegalaxy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoRecordModelUsage(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	at := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	mt.Run("upserts counters and average in one pipeline", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		err := store.RecordModelUsage(context.Background(), models.UsageSample{
			ModelName: "gemma", Language: "Python", ResponseTime: 1.5, Success: true, At: at,
		})
		require.NoError(mt, err)

		ev := mt.GetStartedEvent()
		require.NotNil(mt, ev)
		assert.Equal(mt, "update", ev.CommandName)
		assert.Equal(mt, ModelsCollection, ev.Command.Lookup("update").StringValue())
		assert.Equal(mt, "gemma", ev.Command.Lookup("updates", "0", "q", "modelName").StringValue())
		assert.Equal(mt, "2025-03-10", ev.Command.Lookup("updates", "0", "q", "date").StringValue())
		assert.True(mt, ev.Command.Lookup("updates", "0", "upsert").Boolean())

		pipeline := ev.Command.Lookup("updates", "0", "u")
		require.Equal(mt, bson.TypeArray, pipeline.Type)
		stages, err := pipeline.Array().Values()
		require.NoError(mt, err)
		require.Len(mt, stages, 2)

		counters := stages[0].Document().Lookup("$set")
		for _, field := range []string{"totalUses", "successfulUses", "failedUses", "totalResponseTime", "languages.Python"} {
			assert.Contains(mt, counters.Document().Lookup(field).String(), "$ifNull", field)
		}
		assert.Contains(mt, stages[1].Document().Lookup("$set", "averageResponseTime").String(), "$divide")
	})

	mt.Run("rejects a sample without a model", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, nil)
		err := store.RecordModelUsage(context.Background(), models.UsageSample{ResponseTime: 1})
		require.Error(mt, err)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("wraps server errors", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, nil)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 2, Name: "BadValue", Message: "bad pipeline",
		}))
		err := store.RecordModelUsage(context.Background(), models.UsageSample{ModelName: "gemma", At: at})
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "record model usage")
	})
}

func TestMongoModelStats(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("summarizes daily rows", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB, nil)
		ns := mt.DB.Name() + "." + ModelsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "modelName", Value: "gemma"}, {Key: "date", Value: "2025-03-09"}, {Key: "totalUses", Value: int64(3)},
				{Key: "successfulUses", Value: int64(2)}, {Key: "failedUses", Value: int64(1)}, {Key: "averageResponseTime", Value: 2.0}},
			bson.D{{Key: "modelName", Value: "gemma"}, {Key: "date", Value: "2025-03-10"}, {Key: "totalUses", Value: int64(1)},
				{Key: "successfulUses", Value: int64(1)}, {Key: "averageResponseTime", Value: 4.0}},
		))

		stats, err := store.ModelStats(context.Background(), "gemma", 7, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
		require.NoError(mt, err)
		assert.EqualValues(mt, 4, stats.TotalUses)
		assert.EqualValues(mt, 3, stats.SuccessfulUses)
		assert.EqualValues(mt, 1, stats.FailedUses)
		assert.InDelta(mt, 75.0, stats.SuccessRate, 0.001)
		assert.InDelta(mt, 3.0, stats.AverageResponseTime, 0.001)

		ev := mt.GetStartedEvent()
		require.NotNil(mt, ev)
		assert.Equal(mt, "find", ev.CommandName)
		assert.Equal(mt, "2025-03-10", ev.Command.Lookup("filter", "date", "$lte").StringValue())
	})
}
