package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"

	"github.com/google/uuid"
)

// Job mirrors the jobs table: one row per normalized salary record. Only the
// canonical fields are stored; everything else is dropped during mapping.
type Job struct{ ent.Schema }

func (Job) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "jobs"},
	}
}

func (Job) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.String("title").Default("").
			SchemaType(map[string]string{dialect.Postgres: "text"}),
		field.Float("salary"),
		field.String("currency").Default("USD").
			SchemaType(map[string]string{dialect.Postgres: "varchar(8)"}),
		field.String("country").Default("").
			SchemaType(map[string]string{dialect.Postgres: "text"}),
		field.String("seniority").Default("").
			SchemaType(map[string]string{dialect.Postgres: "text"}),
		field.String("stack").Default("").
			SchemaType(map[string]string{dialect.Postgres: "text"}),
	}
}
