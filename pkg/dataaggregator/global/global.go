package global

import (
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source/ctb"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source/gmb"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source/joint"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source/kmb"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source/lrt"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source/mtr"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source/mtrbus"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source/nlb"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/httpclient"
)

// Setup registers every operator source on aggregator. The joint source comes first so that it can
// claim KMB and Citybus queries for jointly operated routes.
func Setup(aggregator *dataaggregator.Aggregator, fetcher httpclient.Fetcher) {
	aggregator.RegisterSource(joint.New(fetcher))
	aggregator.RegisterSource(kmb.New(fetcher))
	aggregator.RegisterSource(ctb.New(fetcher))
	aggregator.RegisterSource(nlb.New(fetcher))
	aggregator.RegisterSource(mtrbus.New(fetcher))
	aggregator.RegisterSource(gmb.New(fetcher))
	aggregator.RegisterSource(lrt.New(fetcher))
	aggregator.RegisterSource(mtr.New(fetcher))
}
