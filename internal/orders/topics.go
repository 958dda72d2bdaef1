package orders

const (
	TopicOrderSubmitted = "dashboard.order.submitted"
	TopicReconciliation = "dashboard.order.reconciliation"
)

// Partition key = item id, so every event touching one item's stock keeps its order.
func PartitionKey(itemID string) []byte { return []byte(itemID) }
