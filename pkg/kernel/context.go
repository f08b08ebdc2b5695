package kernel

// HeaderUserID is the trusted header the gateway injects after a successful
// validate round-trip. Downstream services trust it and never re-verify the
// bearer token themselves, so any path that bypasses the gateway must reject
// requests lacking it.
const HeaderUserID = "X-User-ID"

// LocalUserID is the fiber Locals key under which middleware stores the
// resolved user id for handlers.
const LocalUserID = "user_id"
