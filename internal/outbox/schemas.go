package outbox

const activityLoggedSchema = `{
  "type": "object",
  "title": "ActivityLogged",
  "properties": {
    "activity_id": {"type": "string"},
    "user_id": {"type": "string"},
    "activity_type": {"type": "string", "enum": ["running", "walking", "cycling", "swimming", "weightlifting", "yoga", "other"]},
    "performed_at": {"type": "string", "format": "date-time"},
    "duration_min": {"type": "integer", "minimum": 1},
    "calories": {"type": "integer", "minimum": 0},
    "distance_km": {"type": "number", "minimum": 0}
  },
  "required": ["activity_id", "user_id", "activity_type", "performed_at", "duration_min", "calories"],
  "additionalProperties": false
}`
