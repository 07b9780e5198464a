package database

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCollectionIndexesCoverTasksAndEvents(t *testing.T) {
	indexes := collectionIndexes()

	if len(indexes[CollectionTasks]) == 0 {
		t.Error("Expected tasks collection to define indexes")
	}
	if len(indexes[CollectionEvents]) == 0 {
		t.Error("Expected events collection to define indexes")
	}
}

// Preferences documents use the user ID as _id and carry no userId field, so
// a unique index on userId would reject every document after the first with a
// duplicate null key.
func TestCollectionIndexesSkipPreferences(t *testing.T) {
	indexes := collectionIndexes()

	if models, ok := indexes[CollectionPreferences]; ok {
		t.Errorf("Expected no preferences indexes, got %d", len(models))
	}
}

func TestCollectionIndexesNoUniqueConstraints(t *testing.T) {
	for collection, models := range collectionIndexes() {
		for _, model := range models {
			if model.Options != nil && model.Options.Unique != nil && *model.Options.Unique {
				keys := model.Keys.(bson.D)
				t.Errorf("Expected no unique index on %s, found one on %v", collection, keys)
			}
		}
	}
}
