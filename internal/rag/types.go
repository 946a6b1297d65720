package rag

// DefaultK is the number of chunks retrieved when the caller does not say.
const DefaultK = 4

// Field names of the document collection. The collection is built outside
// this application; these are the fields it is expected to carry.
const (
	FieldID       = "id"
	FieldText     = "text"
	FieldTitle    = "title"
	FieldSource   = "source"
	FieldMetadata = "metadata"
	FieldVector   = "vector"
)

// Metric types understood by the Milvus index.
const (
	MetricCosine = "COSINE"
	MetricIP     = "IP"
	MetricL2     = "L2"
)
