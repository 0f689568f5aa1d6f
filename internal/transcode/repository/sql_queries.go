package repository

const (
	createJobQuery = `INSERT INTO transcode_jobs (job_id, owner_id, input_path, options, status, progress, outputs, thumbnail, error_message, source, created_at, updated_at, completed_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13)`

	updateJobQuery = `UPDATE transcode_jobs
					SET status = $1,
					    progress = $2,
					    outputs = $3,
					    thumbnail = $4,
					    error_message = NULLIF($5, ''),
					    source = $6,
					    updated_at = $7,
					    completed_at = $8
					WHERE job_id = $9`

	jobColumns = `job_id, owner_id, input_path, options, status, progress, outputs, thumbnail, COALESCE(error_message, ''), source, created_at, updated_at, completed_at`

	getJobByIDQuery = `SELECT ` + jobColumns + ` FROM transcode_jobs WHERE job_id = $1`

	getJobsByOwnerQuery = `SELECT ` + jobColumns + ` FROM transcode_jobs
					WHERE owner_id = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`

	getTotalJobsByOwnerQuery = `SELECT COUNT(job_id) FROM transcode_jobs WHERE owner_id = $1`

	getAllJobsQuery = `SELECT ` + jobColumns + ` FROM transcode_jobs ORDER BY created_at`

	deleteJobQuery = `DELETE FROM transcode_jobs WHERE job_id = $1`

	deleteTerminalJobsQuery = `DELETE FROM transcode_jobs
					WHERE status IN ('completed', 'failed')
					  AND COALESCE(completed_at, updated_at) < $1
					RETURNING job_id`
)
