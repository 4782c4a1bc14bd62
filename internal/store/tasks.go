package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrTaskNotFound = errors.New("task not found")

const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"

	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
)

func ValidPriority(priority string) bool {
	return priority == PriorityLow || priority == PriorityMedium || priority == PriorityHigh
}

func ValidStatus(status string) bool {
	return status == StatusPending || status == StatusInProgress || status == StatusCompleted
}

// UserRef is the populated user projection embedded in task responses.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Comment is one entry of a task's closing-comment thread. Comments are stored
// normalized and resolved into the thread here, at the store boundary.
type Comment struct {
	ID        string  `json:"id"`
	Author    UserRef `json:"author"`
	Text      string  `json:"text"`
	CreatedAt int64   `json:"timestamp"`
}

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Deadline    int64     `json:"deadline"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	CreatedBy   UserRef   `json:"createdBy"`
	Assignees   []UserRef `json:"assignedTo"`
	Comments    []Comment `json:"comments"`
	CreatedAt   int64     `json:"createdAt"`
	UpdatedAt   int64     `json:"updatedAt"`
}

// TaskUpdate carries optional field edits; nil fields are left unchanged.
type TaskUpdate struct {
	Title       *string
	Description *string
	Deadline    *int64
	Priority    *string
}

func (s *Store) CreateTask(title string, description string, deadline int64, priority string, createdBy string) (*Task, error) {
	now := time.Now().UnixMilli()
	id := uuid.NewString()

	_, err := s.DB.Exec(
		`INSERT INTO tasks (id, title, description, deadline, priority, status, created_by, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, title, description, deadline, priority, StatusPending, createdBy, now, now,
	)
	if err != nil {
		return nil, err
	}

	return s.GetTask(id)
}

// GetTask returns the task with creator, assignees and comment thread
// populated. Returns ErrTaskNotFound when the id is unknown.
func (s *Store) GetTask(id string) (*Task, error) {
	row := s.DB.QueryRow(
		`SELECT t.id, t.title, t.description, t.deadline, t.priority, t.status,
                t.created_at, t.updated_at,
                u.id, u.name, u.email
         FROM tasks t
         LEFT JOIN users u ON u.id = t.created_by
         WHERE t.id = ? LIMIT 1`,
		id,
	)

	task, err := scanTask(row)
	if err != nil {
		return nil, err
	}

	if err := s.populateTask(task); err != nil {
		return nil, err
	}

	return task, nil
}

func (s *Store) UpdateTask(id string, update TaskUpdate) (*Task, error) {
	task, err := s.GetTask(id)
	if err != nil {
		return nil, err
	}

	title := task.Title
	if update.Title != nil {
		title = *update.Title
	}
	description := task.Description
	if update.Description != nil {
		description = *update.Description
	}
	deadline := task.Deadline
	if update.Deadline != nil {
		deadline = *update.Deadline
	}
	priority := task.Priority
	if update.Priority != nil {
		priority = *update.Priority
	}

	_, err = s.DB.Exec(
		`UPDATE tasks SET title = ?, description = ?, deadline = ?, priority = ?, updated_at = ? WHERE id = ?`,
		title, description, deadline, priority, time.Now().UnixMilli(), id,
	)
	if err != nil {
		return nil, err
	}

	return s.GetTask(id)
}

func (s *Store) DeleteTask(id string) error {
	result, err := s.DB.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTaskNotFound
	}

	_, _ = s.DB.Exec(`DELETE FROM task_assignees WHERE task_id = ?`, id)
	_, _ = s.DB.Exec(`DELETE FROM task_comments WHERE task_id = ?`, id)
	return nil
}

// ReplaceAssignees swaps the full assignee set of a task.
func (s *Store) ReplaceAssignees(taskID string, userIDs []string) error {
	if _, err := s.GetTask(taskID); err != nil {
		return err
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM task_assignees WHERE task_id = ?`, taskID); err != nil {
		return err
	}
	for _, userID := range userIDs {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO task_assignees (task_id, user_id) VALUES (?, ?)`,
			taskID, userID,
		); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		`UPDATE tasks SET updated_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), taskID,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) IsAssignee(taskID string, userID string) (bool, error) {
	row := s.DB.QueryRow(
		`SELECT COUNT(*) FROM task_assignees WHERE task_id = ? AND user_id = ?`,
		taskID, userID,
	)
	var count int64
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) UpdateTaskStatus(id string, status string) (*Task, error) {
	result, err := s.DB.Exec(
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UnixMilli(), id,
	)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrTaskNotFound
	}

	return s.GetTask(id)
}

func (s *Store) AddComment(taskID string, authorID string, text string) (*Comment, error) {
	if _, err := s.GetTask(taskID); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := time.Now().UnixMilli()
	_, err := s.DB.Exec(
		`INSERT INTO task_comments (id, task_id, author_id, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, taskID, authorID, text, now,
	)
	if err != nil {
		return nil, err
	}

	author, err := s.GetUserByID(authorID)
	if err != nil {
		return nil, err
	}
	comment := &Comment{ID: id, Text: text, CreatedAt: now}
	if author != nil {
		comment.Author = UserRef{ID: author.ID, Name: author.Name, Email: author.Email}
	}
	return comment, nil
}

// ListTasksCreatedBy returns tasks created by userID, newest first, optionally
// filtered by status.
func (s *Store) ListTasksCreatedBy(userID string, status string) ([]Task, error) {
	query := `SELECT t.id, t.title, t.description, t.deadline, t.priority, t.status,
                     t.created_at, t.updated_at,
                     u.id, u.name, u.email
              FROM tasks t
              LEFT JOIN users u ON u.id = t.created_by
              WHERE t.created_by = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND t.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY t.created_at DESC, t.id DESC`

	return s.listTasks(query, args...)
}

// ListTasksAssignedTo returns tasks where userID appears in the assignee set,
// newest first, optionally filtered by status.
func (s *Store) ListTasksAssignedTo(userID string, status string) ([]Task, error) {
	query := `SELECT t.id, t.title, t.description, t.deadline, t.priority, t.status,
                     t.created_at, t.updated_at,
                     u.id, u.name, u.email
              FROM tasks t
              JOIN task_assignees a ON a.task_id = t.id AND a.user_id = ?
              LEFT JOIN users u ON u.id = t.created_by
              WHERE 1 = 1`
	args := []any{userID}
	if status != "" {
		query += ` AND t.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY t.created_at DESC, t.id DESC`

	return s.listTasks(query, args...)
}

func (s *Store) listTasks(query string, args ...any) ([]Task, error) {
	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		task, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tasks {
		if err := s.populateTask(&tasks[i]); err != nil {
			return nil, err
		}
	}

	return tasks, nil
}

func (s *Store) populateTask(task *Task) error {
	assignees, err := s.taskAssignees(task.ID)
	if err != nil {
		return err
	}
	task.Assignees = assignees

	comments, err := s.taskComments(task.ID)
	if err != nil {
		return err
	}
	task.Comments = comments
	return nil
}

func (s *Store) taskAssignees(taskID string) ([]UserRef, error) {
	rows, err := s.DB.Query(
		`SELECT u.id, u.name, u.email
         FROM task_assignees a
         JOIN users u ON u.id = a.user_id
         WHERE a.task_id = ?
         ORDER BY u.name`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]UserRef, 0)
	for rows.Next() {
		var ref UserRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Email); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (s *Store) taskComments(taskID string) ([]Comment, error) {
	rows, err := s.DB.Query(
		`SELECT c.id, c.text, c.created_at, u.id, u.name, u.email
         FROM task_comments c
         LEFT JOIN users u ON u.id = c.author_id
         WHERE c.task_id = ?
         ORDER BY c.created_at ASC, c.id ASC`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]Comment, 0)
	for rows.Next() {
		var comment Comment
		var authorID, authorName, authorEmail sql.NullString
		if err := rows.Scan(&comment.ID, &comment.Text, &comment.CreatedAt, &authorID, &authorName, &authorEmail); err != nil {
			return nil, err
		}
		if authorID.Valid {
			comment.Author = UserRef{ID: authorID.String, Name: authorName.String, Email: authorEmail.String}
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row *sql.Row) (*Task, error) {
	task, err := scanTaskFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func scanTaskRows(rows *sql.Rows) (*Task, error) {
	return scanTaskFrom(rows)
}

func scanTaskFrom(scanner rowScanner) (*Task, error) {
	var task Task
	var creatorID, creatorName, creatorEmail sql.NullString
	err := scanner.Scan(
		&task.ID, &task.Title, &task.Description, &task.Deadline,
		&task.Priority, &task.Status, &task.CreatedAt, &task.UpdatedAt,
		&creatorID, &creatorName, &creatorEmail,
	)
	if err != nil {
		return nil, err
	}
	if creatorID.Valid {
		task.CreatedBy = UserRef{ID: creatorID.String, Name: creatorName.String, Email: creatorEmail.String}
	}
	return &task, nil
}
