package mongodb

import (
	"context"
	"testing"
)

func TestConnect_InvalidURI(t *testing.T) {
	if _, err := Connect(context.Background(), "not-a-mongo-uri", "careplans"); err == nil {
		t.Fatal("expected error for an invalid URI")
	}
}
