package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/courseforge/vod/pkg/models"
)

// GetSection retrieves a section by ID
func (r *Repository) GetSection(ctx context.Context, id string) (*models.Section, error) {
	var section models.Section

	query := `SELECT id, course_id, title, position, created_at FROM sections WHERE id = $1`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&section.ID, &section.CourseID, &section.Title, &section.Position, &section.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("section %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get section: %w", err)
	}

	return &section, nil
}

// GetCourse retrieves a course by ID
func (r *Repository) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course

	query := `SELECT id, instructor_id, title, published, created_at FROM courses WHERE id = $1`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&course.ID, &course.InstructorID, &course.Title, &course.Published, &course.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("course %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	return &course, nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User

	query := `SELECT id, email, role, created_at FROM users WHERE id = $1`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Role, &user.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// ResolveOwnership walks the chain video -> section -> course ->
// instructor with explicit lookups. A missing video is ErrNotFound; a
// missing intermediate link means the course data is corrupt and is
// reported as ErrInvalidState, never as a silent miss.
func (r *Repository) ResolveOwnership(ctx context.Context, videoID string) (*models.Ownership, error) {
	video, err := r.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	section, err := r.GetSection(ctx, video.SectionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("video %s references missing section %s: %w",
				videoID, video.SectionID, models.ErrInvalidState)
		}
		return nil, err
	}

	course, err := r.GetCourse(ctx, section.CourseID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("section %s references missing course %s: %w",
				section.ID, section.CourseID, models.ErrInvalidState)
		}
		return nil, err
	}

	instructor, err := r.GetUser(ctx, course.InstructorID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("course %s references missing instructor %s: %w",
				course.ID, course.InstructorID, models.ErrInvalidState)
		}
		return nil, err
	}

	return &models.Ownership{
		Video:      video,
		Section:    section,
		Course:     course,
		Instructor: instructor,
	}, nil
}
