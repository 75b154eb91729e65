package storage

import "time"

// ExportJob is one recorded export run.
type ExportJob struct {
	JobID     string    `json:"jobId"`
	Metano    string    `json:"metano"`
	Path      string    `json:"path,omitempty"`
	Format    string    `json:"format"`
	Code      string    `json:"code"`
	Message   string    `json:"message,omitempty"`
	Rows      int       `json:"rows"`
	Pages     int       `json:"pages"`
	Duration  int64     `json:"durationMs"`
	CreatedAt time.Time `json:"createdAt"`
}

// SaveExportJob records an export run.
func (s *Store) SaveExportJob(job *ExportJob) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO export_jobs (job_id, metano, path, format, code, message, rows, pages, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.JobID, job.Metano, job.Path, job.Format, job.Code, job.Message,
		job.Rows, job.Pages, job.Duration, job.CreatedAt.UTC(),
	)
	return err
}

// ListExportJobs returns the most recent export runs, newest first.
func (s *Store) ListExportJobs(limit int) ([]*ExportJob, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreClosed
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT job_id, metano, path, format, code, message, rows, pages, duration_ms, created_at
		FROM export_jobs
		ORDER BY created_at DESC, job_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*ExportJob
	for rows.Next() {
		var job ExportJob
		if err := rows.Scan(
			&job.JobID, &job.Metano, &job.Path, &job.Format, &job.Code,
			&job.Message, &job.Rows, &job.Pages, &job.Duration, &job.CreatedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

// GetExportJob fetches a single export run by job ID.
func (s *Store) GetExportJob(jobID string) (*ExportJob, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreClosed
	}
	var job ExportJob
	err := s.db.QueryRow(`
		SELECT job_id, metano, path, format, code, message, rows, pages, duration_ms, created_at
		FROM export_jobs WHERE job_id = ?
	`, jobID).Scan(
		&job.JobID, &job.Metano, &job.Path, &job.Format, &job.Code,
		&job.Message, &job.Rows, &job.Pages, &job.Duration, &job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
