package search

// Match is one similarity hit from an index namespace: the card title
// resolved from index metadata plus its similarity score in [0,1].
type Match struct {
	Title string
	Score float64
}
