package services

import (
	"github.com/openamc/amctrack/internal/errors"
	"github.com/openamc/amctrack/internal/logger"
	"github.com/openamc/amctrack/internal/models"
)

// BookmarkService manages the bookmark list and named problem collections.
// Both live inside the stats aggregate as pass-through fields and ride along
// with the regular sync flushes.
type BookmarkService struct {
	sessions *SessionService
	log      *logger.Logger
}

// NewBookmarkService creates a BookmarkService over the session owner.
func NewBookmarkService(sessions *SessionService) *BookmarkService {
	return &BookmarkService{
		sessions: sessions,
		log:      logger.Default().WithPrefix("bookmarks"),
	}
}

// AddBookmark appends problemID to the user's bookmark list.
func (s *BookmarkService) AddBookmark(userID, problemID string) error {
	if problemID == "" {
		return errors.NewValidationError("problemId", "must not be empty")
	}
	mgr, err := s.sessions.Manager(userID)
	if err != nil {
		return err
	}
	mgr.Mutate(func(agg *models.StatsAggregate) {
		if agg.Bookmarks.Add(problemID) {
			s.log.Debug("bookmark added: %s", problemID)
		}
	})
	return nil
}

// RemoveBookmark deletes problemID from the user's bookmark list.
func (s *BookmarkService) RemoveBookmark(userID, problemID string) error {
	mgr, err := s.sessions.Manager(userID)
	if err != nil {
		return err
	}
	mgr.Mutate(func(agg *models.StatsAggregate) {
		agg.Bookmarks.Remove(problemID)
	})
	return nil
}

// Bookmarks returns the user's bookmarked problem ids in insertion order.
func (s *BookmarkService) Bookmarks(userID string) ([]string, error) {
	mgr, err := s.sessions.Manager(userID)
	if err != nil {
		return nil, err
	}
	return mgr.Snapshot().Bookmarks.IDs(), nil
}

// CreateCollection creates an empty named collection.
func (s *BookmarkService) CreateCollection(userID, name string) error {
	if name == "" {
		return errors.NewValidationError("name", "must not be empty")
	}
	mgr, err := s.sessions.Manager(userID)
	if err != nil {
		return err
	}
	var exists bool
	mgr.Mutate(func(agg *models.StatsAggregate) {
		if _, ok := agg.Collections[name]; ok {
			exists = true
			return
		}
		agg.Collections[name] = []string{}
	})
	if exists {
		return errors.NewValidationError("name", "collection already exists")
	}
	return nil
}

// DeleteCollection removes a named collection.
func (s *BookmarkService) DeleteCollection(userID, name string) error {
	mgr, err := s.sessions.Manager(userID)
	if err != nil {
		return err
	}
	var missing bool
	mgr.Mutate(func(agg *models.StatsAggregate) {
		if _, ok := agg.Collections[name]; !ok {
			missing = true
			return
		}
		delete(agg.Collections, name)
	})
	if missing {
		return errors.NewNotFoundError("collection", name)
	}
	return nil
}

// AddToCollection appends problemID to the named collection, ignoring
// duplicates.
func (s *BookmarkService) AddToCollection(userID, name, problemID string) error {
	if problemID == "" {
		return errors.NewValidationError("problemId", "must not be empty")
	}
	mgr, err := s.sessions.Manager(userID)
	if err != nil {
		return err
	}
	var missing bool
	mgr.Mutate(func(agg *models.StatsAggregate) {
		ids, ok := agg.Collections[name]
		if !ok {
			missing = true
			return
		}
		for _, id := range ids {
			if id == problemID {
				return
			}
		}
		agg.Collections[name] = append(ids, problemID)
	})
	if missing {
		return errors.NewNotFoundError("collection", name)
	}
	return nil
}

// RemoveFromCollection deletes problemID from the named collection.
func (s *BookmarkService) RemoveFromCollection(userID, name, problemID string) error {
	mgr, err := s.sessions.Manager(userID)
	if err != nil {
		return err
	}
	var missing bool
	mgr.Mutate(func(agg *models.StatsAggregate) {
		ids, ok := agg.Collections[name]
		if !ok {
			missing = true
			return
		}
		for i, id := range ids {
			if id == problemID {
				agg.Collections[name] = append(ids[:i], ids[i+1:]...)
				return
			}
		}
	})
	if missing {
		return errors.NewNotFoundError("collection", name)
	}
	return nil
}

// Collections returns all named collections for the user.
func (s *BookmarkService) Collections(userID string) (map[string][]string, error) {
	mgr, err := s.sessions.Manager(userID)
	if err != nil {
		return nil, err
	}
	return mgr.Snapshot().Collections, nil
}
