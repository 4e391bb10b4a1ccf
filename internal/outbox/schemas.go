package outbox

// SchemaCatalogEntry maps event type to schema definition.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	"activity.started": {
		Schema: activityStartedSchema,
	},
	"activity.ended": {
		Schema: activityEndedSchema,
	},
	"record.amended": {
		Schema: recordAmendedSchema,
	},
	"record.deleted": {
		Schema: recordDeletedSchema,
	},
}

const activityStartedSchema = `{
  "type": "object",
  "title": "ActivityStarted",
  "properties": {
    "record_id": {"type": "string"},
    "dog_id": {"type": "string"},
    "activity_kind": {"type": "string"},
    "start_time": {"type": "string", "format": "date-time"}
  },
  "required": ["record_id", "dog_id", "activity_kind", "start_time"],
  "additionalProperties": false
}`

const activityEndedSchema = `{
  "type": "object",
  "title": "ActivityEnded",
  "properties": {
    "record_id": {"type": "string"},
    "dog_id": {"type": "string"},
    "activity_kind": {"type": "string"},
    "start_time": {"type": "string", "format": "date-time"},
    "end_time": {"type": "string", "format": "date-time"}
  },
  "required": ["record_id", "dog_id", "activity_kind", "start_time", "end_time"],
  "additionalProperties": false
}`

const recordAmendedSchema = `{
  "type": "object",
  "title": "RecordAmended",
  "properties": {
    "record_id": {"type": "string"},
    "dog_id": {"type": "string"},
    "activity_kind": {"type": "string"},
    "start_time": {"type": "string", "format": "date-time"},
    "end_time": {"type": "string", "format": "date-time"},
    "poop_status": {"type": "string"},
    "pee_status": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["record_id", "dog_id", "activity_kind", "start_time", "occurred_at"],
  "additionalProperties": false
}`

const recordDeletedSchema = `{
  "type": "object",
  "title": "RecordDeleted",
  "properties": {
    "record_id": {"type": "string"},
    "dog_id": {"type": "string"},
    "activity_kind": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["record_id", "dog_id", "activity_kind", "occurred_at"],
  "additionalProperties": false
}`
