package repository

const (
	resolveStreamKeyQuery = `SELECT stream_key, owner_id, active FROM stream_keys WHERE stream_key = $1`

	createSessionQuery = `INSERT INTO stream_sessions (session_id, stream_key, owner_id, title, category, state, viewer_count, peak_viewers, started_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
					RETURNING session_id, stream_key, owner_id, title, category, state, viewer_count, peak_viewers, started_at, ended_at, duration_seconds, COALESCE(recording_path, '') AS recording_path, COALESCE(transcode_job_id, '') AS transcode_job_id`

	updateSessionQuery = `UPDATE stream_sessions
					SET state = $1,
					    viewer_count = $2,
					    peak_viewers = $3,
					    ended_at = $4,
					    duration_seconds = $5,
					    recording_path = NULLIF($6, ''),
					    transcode_job_id = NULLIF($7, '')
					WHERE session_id = $8`

	getSessionByIDQuery = `SELECT session_id, stream_key, owner_id, title, category, state, viewer_count, peak_viewers, started_at, ended_at, duration_seconds, COALESCE(recording_path, '') AS recording_path, COALESCE(transcode_job_id, '') AS transcode_job_id
					FROM stream_sessions WHERE session_id = $1`

	getLiveSessionsQuery = `SELECT session_id, stream_key, owner_id, title, category, state, viewer_count, peak_viewers, started_at, ended_at, duration_seconds, COALESCE(recording_path, '') AS recording_path, COALESCE(transcode_job_id, '') AS transcode_job_id
					FROM stream_sessions WHERE state = 'live' ORDER BY started_at`
)
