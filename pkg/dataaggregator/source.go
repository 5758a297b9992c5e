package dataaggregator

import (
	"context"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/query"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
)

type DataSource interface {
	GetName() string
	Supports() []transit.Operator
	Lookup(context.Context, query.ETA) (*transit.ETAQueryResult, error)
}
