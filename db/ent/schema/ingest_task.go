package schema

import (
	"encoding/json"
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/joseph-ayodele/jobs-ingest/constants"
	"github.com/joseph-ayodele/jobs-ingest/db/ent/schema/utils"

	"github.com/google/uuid"
)

// IngestTask tracks one ingestion run per submitted file: queue state,
// progress counters and the terminal payload.
type IngestTask struct{ ent.Schema }

func (IngestTask) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "ingest_tasks"},
	}
}

func (IngestTask) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.String("file_id").NotEmpty(),
		field.String("status").
			Validate(utils.EnumValidator(constants.TaskStatusValues...)).
			SchemaType(map[string]string{dialect.Postgres: "varchar(16)"}),
		field.String("stage").Optional().Nillable(),
		field.Int("processed").Default(0),
		field.Int("total").Default(0),
		field.Int("percent").Default(0),
		field.String("error_message").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "text"}),
		field.JSON("result", json.RawMessage{}).
			Optional(),
		field.Time("created_at").Default(time.Now).Immutable(),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
		field.Time("finished_at").Optional().Nillable(),
	}
}

func (IngestTask) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status", "updated_at"),
	}
}
