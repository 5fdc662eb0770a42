package repo

const eventColumns = `id, clinic_id, event_type, event_version, payload, trigger_source,
	timestamp, status, attempts, last_attempt, last_response, http_status`

const insertEvent = `INSERT INTO webhook_events (
                    id, clinic_id, event_type, event_version, payload, trigger_source,
                    timestamp, status, attempts)
VALUES ($1, $2, $3, $4, ($5)::jsonb, $6, $7, 'pending', 0)
ON CONFLICT (id) DO NOTHING
RETURNING id;`

const getEvent = `SELECT ` + eventColumns + ` FROM webhook_events WHERE id = $1`

const markEventFailed = `
UPDATE webhook_events
SET status = 'failed', http_status = $3, last_response = $4, claimed_at = NULL
WHERE id = $1 AND clinic_id = $2`

// ENDPOINTS
const listActiveEndpoints = `
SELECT id, clinic_id, url, secret, is_active, event_types, description
FROM webhook_endpoints
WHERE clinic_id = $1 AND is_active
ORDER BY created_at, id`

const getEndpoint = `
SELECT id, clinic_id, url, secret, is_active, event_types, description
FROM webhook_endpoints
WHERE id = $1 AND clinic_id = $2`

const getLegacyWebhook = `SELECT webhook_url, webhook_secret FROM clinics WHERE id = $1`

// RETRIES
// no row comes back once the event is dead-lettered
const insertRetry = `
INSERT INTO webhook_retries (event_id, endpoint_id, clinic_id, retry_at, status)
SELECT $1::uuid, $2::uuid, $3::uuid, $4::timestamptz, 'pending'
WHERE NOT EXISTS (SELECT 1 FROM webhook_dead_letters d WHERE d.event_id = $1)
RETURNING id`

const completeRetry = `
UPDATE webhook_retries SET status = 'completed', updated_at = now()
WHERE id = $1`

const claimDueRetries = `
WITH picked AS (
	SELECT r.id
	FROM webhook_retries r
	WHERE r.status = 'pending'
		AND r.retry_at < $2
		AND NOT EXISTS (SELECT 1 FROM webhook_dead_letters d WHERE d.event_id = r.event_id)
	ORDER BY r.retry_at, r.id
	FOR UPDATE SKIP LOCKED
	LIMIT $1
)
UPDATE webhook_retries AS r
SET status = 'processing', updated_at = now()
FROM picked
WHERE r.id = picked.id
RETURNING r.id, r.event_id, r.endpoint_id, r.clinic_id, r.retry_at, r.status, r.created_at;
`

// PENDING EVENTS
// in_progress rows older than the lease belong to a dispatcher that died mid attempt
const claimPendingEvents = `
WITH picked AS (
	SELECT e.id
	FROM webhook_events e
	WHERE (e.status = 'pending' OR (e.status = 'in_progress' AND e.claimed_at < $2))
		AND NOT EXISTS (SELECT 1 FROM webhook_dead_letters d WHERE d.event_id = e.id)
	ORDER BY e.timestamp, e.id
	FOR UPDATE SKIP LOCKED
	LIMIT $1
)
UPDATE webhook_events AS e
SET status = 'in_progress', claimed_at = $3
FROM picked
WHERE e.id = picked.id
RETURNING e.id, e.clinic_id, e.event_type, e.event_version, e.payload, e.trigger_source,
	e.timestamp, e.status, e.attempts, e.last_attempt, e.last_response, e.http_status;
`

// ATTEMPTS
const startEventAttempt = `
UPDATE webhook_events
SET status = 'in_progress', attempts = attempts + 1, last_attempt = $3, claimed_at = $3
WHERE id = $1 AND clinic_id = $2
RETURNING attempts`

// one row per (event, endpoint), the legacy url has endpoint_id NULL
const upsertDeliveryLog = `
INSERT INTO webhook_delivery_logs (event_id, endpoint_id, clinic_id, status, retry_count, created_at, updated_at)
VALUES ($1, $2, $3, 'sending', 0, $4, $4)
ON CONFLICT (event_id, (COALESCE(endpoint_id, '00000000-0000-0000-0000-000000000000'::uuid)), clinic_id)
DO UPDATE SET status = 'sending',
	retry_count = webhook_delivery_logs.retry_count + 1,
	updated_at = EXCLUDED.updated_at
RETURNING retry_count`

const finishEventAttempt = `
UPDATE webhook_events
SET status = $3, http_status = $4, last_response = $5, claimed_at = NULL
WHERE id = $1 AND clinic_id = $2`

const finishDeliveryLog = `
UPDATE webhook_delivery_logs
SET status = $4, response_code = $5, response_body = $6, updated_at = now()
WHERE event_id = $1 AND clinic_id = $2 AND endpoint_id IS NOT DISTINCT FROM $3`

// DEAD LETTERS
// one record per event, every other endpoint's pending retry of that event is closed with it
const insertDeadLetter = `
WITH inserted AS (
	INSERT INTO webhook_dead_letters (
	  event_id, event_type, clinic_id, endpoint_id, payload, attempts, last_attempt, error_message
	) VALUES ($1, $2, $3, $4, ($5)::jsonb, $6, $7, $8)
	ON CONFLICT (event_id) DO NOTHING
	RETURNING id
), closed AS (
	UPDATE webhook_retries
	SET status = 'completed', updated_at = now()
	WHERE event_id = $1 AND status = 'pending'
)
SELECT id FROM inserted`

const isDeadLettered = `SELECT EXISTS (SELECT 1 FROM webhook_dead_letters WHERE event_id = $1)`

const deliveryLogColumns = "id, event_id, endpoint_id, clinic_id, status, response_code, response_body, retry_count, created_at, updated_at"

const deadLetterColumns = "id, event_id, event_type, clinic_id, endpoint_id, payload, attempts, last_attempt, error_message, created_at"
