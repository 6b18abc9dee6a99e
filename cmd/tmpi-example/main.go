// Command tmpi-example launches a small ring exchange over the in-process
// message-passing core: each worker sends its rank to (rank+1)%n and
// receives from (rank-1+n)%n, then an allreduce sums the ranks and rank 0
// logs the total.
package main

import (
	"os"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/molnplus/tmpi/pkg/tmpi"
	"github.com/molnplus/tmpi/pkg/tmpi/definition"
	"github.com/molnplus/tmpi/pkg/tmpi/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	np    = kingpin.Flag("np", "number of worker threads").Default("4").Int()
	debug = kingpin.Flag("debug", "enable debug logging").Bool()
)

func main() {
	kingpin.Parse()

	log := definition.NewDefaultLogger()
	log.ToggleDebug(*debug)

	reg := metrics.NewRegistry(prometheus.NewRegistry())

	err := tmpi.InitN(*np, tmpi.Options{Logger: log, Metrics: reg}, func(self *tmpi.Self) {
		world := self.World()
		rank := self.Rank()
		n := self.Size()

		send := []int64{int64(rank)}
		recv := make([]int64, 1)

		dest := (rank + 1) % n
		source := (rank - 1 + n) % n
		tmpi.Sendrecv(self, send, dest, 0, recv, source, 0, world)
		log.Infof("worker %d received %d from worker %d", rank, recv[0], source)

		sum := make([]int64, 1)
		if err := tmpi.Allreduce(self, send, sum, tmpi.Sum, world); err != nil {
			log.Errorf("allreduce failed: %v", err)
		} else if rank == 0 {
			log.Infof("sum of ranks over %d workers: %d", n, sum[0])
		}

		if err := self.Finalize(); err != nil {
			log.Errorf("finalize failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("tmpi run failed: %v", err)
		os.Exit(1)
	}
}
