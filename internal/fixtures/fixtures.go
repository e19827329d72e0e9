// Package fixtures holds illustrative table schemas for the domain tables
// named in the storage core's interface contract. They exist for tests and
// the operator CLI's table create subcommand only; no core package imports this
// one, since the core never hard-codes domain table shapes.
package fixtures

import "github.com/mastra-ai/dsqlstore/schema"

// Threads describes mastra_threads: conversational thread headers keyed by
// resourceId, ordered for retrieval by createdAt.
func Threads() schema.TableSchema {
	return schema.TableSchema{
		Name: "mastra_threads",
		Columns: map[string]schema.Column{
			"id":         {Type: schema.UUID, PrimaryKey: true},
			"resourceId": {Type: schema.Text},
			"title":      {Type: schema.Text, Nullable: true},
			"metadata":   {Type: schema.JSONB},
			"createdAt":  {Type: schema.Timestamp},
			"updatedAt":  {Type: schema.Timestamp},
		},
	}
}

// Messages describes mastra_messages: individual turns within a thread.
func Messages() schema.TableSchema {
	return schema.TableSchema{
		Name: "mastra_messages",
		Columns: map[string]schema.Column{
			"id":        {Type: schema.UUID, PrimaryKey: true},
			"thread_id": {Type: schema.UUID},
			"role":      {Type: schema.Text},
			"content":   {Type: schema.JSONB},
			"createdAt": {Type: schema.Timestamp},
		},
	}
}

// WorkflowSnapshot describes mastra_workflow_snapshot: the latest
// checkpointed state of a named workflow run. Its (workflow_name, run_id)
// uniqueness is enforced by an async unique index, not an inline
// constraint, per the core's table-creation rules.
func WorkflowSnapshot() schema.TableSchema {
	return schema.TableSchema{
		Name: "mastra_workflow_snapshot",
		Columns: map[string]schema.Column{
			"id":            {Type: schema.UUID, PrimaryKey: true},
			"workflow_name": {Type: schema.Text},
			"run_id":        {Type: schema.Text},
			"snapshot":      {Type: schema.JSONB},
			"createdAt":     {Type: schema.Timestamp},
			"updatedAt":     {Type: schema.Timestamp},
		},
	}
}

// AISpans describes mastra_ai_spans: observability spans for agent/tool
// execution traces.
func AISpans() schema.TableSchema {
	return schema.TableSchema{
		Name: "mastra_ai_spans",
		Columns: map[string]schema.Column{
			"id":             {Type: schema.UUID, PrimaryKey: true},
			"traceId":        {Type: schema.Text},
			"spanId":         {Type: schema.Text},
			"parentSpanId":   {Type: schema.Text, Nullable: true},
			"name":           {Type: schema.Text},
			"spanType":       {Type: schema.Text},
			"entityType":     {Type: schema.Text, Nullable: true},
			"entityId":       {Type: schema.Text, Nullable: true},
			"entityName":     {Type: schema.Text, Nullable: true},
			"organizationId": {Type: schema.Text, Nullable: true},
			"userId":         {Type: schema.Text, Nullable: true},
			"attributes":     {Type: schema.JSONB},
			"createdAt":      {Type: schema.Timestamp},
		},
	}
}

// Scorers describes mastra_scorers: scoring results attached to a trace
// and span.
func Scorers() schema.TableSchema {
	return schema.TableSchema{
		Name: "mastra_scorers",
		Columns: map[string]schema.Column{
			"id":        {Type: schema.UUID, PrimaryKey: true},
			"traceId":   {Type: schema.Text},
			"spanId":    {Type: schema.Text},
			"score":     {Type: schema.Integer},
			"reason":    {Type: schema.Text, Nullable: true},
			"createdAt": {Type: schema.Timestamp},
		},
	}
}

// ByName looks up one of the illustrative table schemas by its table name,
// for the operator CLI's table create <table> argument.
func ByName(name string) (schema.TableSchema, bool) {
	for _, desc := range []schema.TableSchema{Threads(), Messages(), WorkflowSnapshot(), AISpans(), Scorers()} {
		if desc.Name == name {
			return desc, true
		}
	}
	return schema.TableSchema{}, false
}

// Names returns the table names ByName recognizes, for usage/help text.
func Names() []string {
	return []string{
		Threads().Name, Messages().Name, WorkflowSnapshot().Name, AISpans().Name, Scorers().Name,
	}
}

// DefaultIndexes enumerates the composite indexes domain clients declare
// over the tables above. They are passed to the core as plain
// CreateIndexOptions data, never computed by the core itself, to avoid a
// layering cycle between this package and the top-level store package.
func DefaultIndexes() []schema.CreateIndexOptions {
	return []schema.CreateIndexOptions{
		{Name: "idx_threads_resource_created", Table: "mastra_threads", Columns: []string{"resourceId", "createdAt"}},
		{Name: "idx_messages_thread_created", Table: "mastra_messages", Columns: []string{"thread_id", "createdAt"}},
		{Name: "idx_scorers_trace_span_created", Table: "mastra_scorers", Columns: []string{"traceId", "spanId", "createdAt"}},
		{Name: "idx_spans_trace", Table: "mastra_ai_spans", Columns: []string{"traceId"}},
		{Name: "idx_spans_parent", Table: "mastra_ai_spans", Columns: []string{"parentSpanId"}},
		{Name: "idx_spans_name", Table: "mastra_ai_spans", Columns: []string{"name"}},
		{Name: "idx_spans_type", Table: "mastra_ai_spans", Columns: []string{"spanType"}},
		{Name: "idx_spans_entity_type_id", Table: "mastra_ai_spans", Columns: []string{"entityType", "entityId"}},
		{Name: "idx_spans_entity_type_name", Table: "mastra_ai_spans", Columns: []string{"entityType", "entityName"}},
		{Name: "idx_spans_org_user", Table: "mastra_ai_spans", Columns: []string{"organizationId", "userId"}},
	}
}
