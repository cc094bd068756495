package allocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"capacity-planner-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinRating = 1
	MaxRating = 5
)

// SubmitReview records a rating for the employee's work on a completed
// task and recomputes the employee's average rating. One review is
// allowed per (task, employee) pair.
func (e *Engine) SubmitReview(ctx context.Context, taskID, employeeID string, rating int, comment *string) (*models.Review, error) {
	const op = "review"
	if rating < MinRating || rating > MaxRating {
		return nil, newError(ErrValidation, op, "rating must be between %d and %d, got %d", MinRating, MaxRating, rating).
			onTask(taskID).onEmployee(employeeID)
	}
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if trimmed == "" {
			comment = nil
		} else {
			comment = &trimmed
		}
	}

	var review *models.Review
	err := e.withLocks([]string{taskKey(taskID), employeeKey(employeeID)}, func() error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			task, err := findTask(tx, op, taskID)
			if err != nil {
				return err
			}
			if _, err := findEmployee(tx, op, employeeID); err != nil {
				return err
			}
			if !task.Completed {
				return newError(ErrInvalidState, op, "task %s is not completed", taskID).onTask(taskID)
			}

			var assignment models.Assignment
			err = tx.Where("task_id = ? AND employee_id = ?", taskID, employeeID).First(&assignment).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(ErrInvalidState, op, "employee %s was not assigned to task %s", employeeID, taskID).
					onTask(taskID).onEmployee(employeeID)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}

			var existing int64
			err = tx.Model(&models.Review{}).
				Where("task_id = ? AND employee_id = ?", taskID, employeeID).
				Count(&existing).Error
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			if existing > 0 {
				return newError(ErrInvalidState, op, "employee %s already has a review for task %s", employeeID, taskID).
					onTask(taskID).onEmployee(employeeID)
			}

			review = &models.Review{
				ID:         uuid.NewString(),
				TaskID:     taskID,
				EmployeeID: employeeID,
				Rating:     rating,
				Comment:    comment,
				ReviewedAt: e.now().UTC(),
			}
			if err := tx.Create(review).Error; err != nil {
				return fmt.Errorf("%s: write review: %w", op, err)
			}
			if err := recomputeRating(tx, employeeID); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}

			rows, err := taskAssignments(tx, taskID)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			reviewed, err := allReviewed(tx, taskID, rows)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			if reviewed != task.Reviewed {
				if err := tx.Model(task).Update("reviewed", reviewed).Error; err != nil {
					return fmt.Errorf("%s: %w", op, err)
				}
			}
			return nil
		})
	})
	if err != nil {
		log.Printf("SubmitReview: rejected: %v", err)
		return nil, err
	}

	log.Printf("SubmitReview: employee %s rated %d on task %s", employeeID, rating, taskID)
	e.publish(EventReviewSubmitted, taskID, employeeID)
	return review, nil
}

// ReviewsFor lists the employee's reviews, newest first.
func (e *Engine) ReviewsFor(ctx context.Context, employeeID string) ([]models.Review, error) {
	db := e.db.WithContext(ctx)
	if _, err := findEmployee(db, "reviews", employeeID); err != nil {
		return nil, err
	}
	reviews := []models.Review{}
	err := db.Where("employee_id = ?", employeeID).
		Order("reviewed_at DESC").
		Order("id").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("reviews: %w", err)
	}
	return reviews, nil
}

// recomputeRating stores the arithmetic mean of all the employee's
// ratings, or NULL when none remain.
func recomputeRating(tx *gorm.DB, employeeID string) error {
	var avg sql.NullFloat64
	err := tx.Model(&models.Review{}).
		Where("employee_id = ?", employeeID).
		Select("AVG(rating)").
		Scan(&avg).Error
	if err != nil {
		return fmt.Errorf("average rating of %s: %w", employeeID, err)
	}

	var value any = gorm.Expr("NULL")
	if avg.Valid {
		value = avg.Float64
	}
	err = tx.Model(&models.Employee{}).
		Where("id = ?", employeeID).
		Update("average_rating", value).Error
	if err != nil {
		return fmt.Errorf("store rating of %s: %w", employeeID, err)
	}
	return nil
}

// allReviewed reports whether every assignee of the task has a review.
func allReviewed(tx *gorm.DB, taskID string, rows []models.Assignment) (bool, error) {
	if len(rows) == 0 {
		return false, nil
	}
	var reviewers []string
	err := tx.Model(&models.Review{}).Where("task_id = ?", taskID).Pluck("employee_id", &reviewers).Error
	if err != nil {
		return false, err
	}
	have := make(map[string]struct{}, len(reviewers))
	for _, id := range reviewers {
		have[id] = struct{}{}
	}
	for _, a := range rows {
		if _, ok := have[a.EmployeeID]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// retractReviews deletes the task's reviews and refreshes the ratings of
// everyone who lost one.
func retractReviews(tx *gorm.DB, taskID string) error {
	var reviewers []string
	err := tx.Model(&models.Review{}).Where("task_id = ?", taskID).Pluck("employee_id", &reviewers).Error
	if err != nil {
		return fmt.Errorf("retract reviews: %w", err)
	}
	if len(reviewers) == 0 {
		return nil
	}
	if err := tx.Where("task_id = ?", taskID).Delete(&models.Review{}).Error; err != nil {
		return fmt.Errorf("retract reviews: %w", err)
	}
	for _, id := range reviewers {
		if err := recomputeRating(tx, id); err != nil {
			return err
		}
	}
	return nil
}
