package classroom

import (
	"context"
	"fmt"
	"strings"

	"github.com/kozaktomas/class-attendance/internal/database"
	"github.com/kozaktomas/class-attendance/internal/logging"
)

// ClassUpdate holds the fields to change; nil fields are kept.
type ClassUpdate struct {
	Name    *string
	Subject *string
}

// CreateClass creates a class. Name is required.
func (s *Service) CreateClass(ctx context.Context, name, subject string) (*database.StoredClass, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: class name is required", ErrInvalidInput)
	}
	class := &database.StoredClass{Name: name, Subject: strings.TrimSpace(subject)}
	if err := s.store.CreateClass(ctx, class); err != nil {
		return nil, fmt.Errorf("create class: %w", err)
	}
	logging.Info(logging.Fields{"class_id": class.ID, "name": class.Name}, "class created")
	return class, nil
}

// ListClasses returns classes matching search, all classes when search is empty.
func (s *Service) ListClasses(ctx context.Context, search string) ([]database.StoredClass, error) {
	classes, err := s.store.ListClasses(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// GetClass returns a class with its student count.
func (s *Service) GetClass(ctx context.Context, id int64) (*database.StoredClass, error) {
	return s.requireClass(ctx, id)
}

// UpdateClass applies a partial update.
func (s *Service) UpdateClass(ctx context.Context, id int64, upd ClassUpdate) (*database.StoredClass, error) {
	class, err := s.requireClass(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: class name cannot be empty", ErrInvalidInput)
		}
		class.Name = name
	}
	if upd.Subject != nil {
		class.Subject = strings.TrimSpace(*upd.Subject)
	}
	if err := s.store.UpdateClass(ctx, class); err != nil {
		return nil, fmt.Errorf("update class: %w", err)
	}
	return class, nil
}

// DeleteClass removes a class with its students and attendance records.
func (s *Service) DeleteClass(ctx context.Context, id int64) error {
	if err := s.store.DeleteClass(ctx, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	logging.Info(logging.Fields{"class_id": id}, "class deleted")
	return nil
}
