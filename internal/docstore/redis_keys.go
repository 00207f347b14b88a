package docstore

const keyPrefix = "bm:user:"

// DocsKey returns the hash holding a collection's documents by id.
func DocsKey(userID, collection string) string {
	return keyPrefix + userID + ":" + collection + ":docs"
}

// OrderKey returns the list holding a collection's document ids in order.
func OrderKey(userID, collection string) string {
	return keyPrefix + userID + ":" + collection + ":order"
}

// ChangesChannel returns the pub/sub channel announcing collection writes.
func ChangesChannel(userID, collection string) string {
	return keyPrefix + userID + ":" + collection + ":changes"
}
