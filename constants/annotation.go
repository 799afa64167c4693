package constants

// AnnotationState is the stored outcome of a human annotation.
// Pending insights carry no state at all (NULL in the store).
type AnnotationState int

const (
	AnnotationRejected AnnotationState = 0
	AnnotationAccepted AnnotationState = 1
)
