package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
)

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	for _, brokers := range [][]string{nil, {""}} {
		pub, sub, err := CreateChannel(watermill.NopLogger{}, brokers, "autoflow-worker")

		assert.ErrorIs(t, err, ErrNoBrokers)
		assert.Nil(t, pub)
		assert.Nil(t, sub)
	}
}
