package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/olekukonko/tablewriter"

	"github.com/walpredict/stock-optimizer/internal/logger"
	"github.com/walpredict/stock-optimizer/pkg/client"
	"github.com/walpredict/stock-optimizer/pkg/config"
	"github.com/walpredict/stock-optimizer/pkg/core"
	"github.com/walpredict/stock-optimizer/pkg/manager"
	"github.com/walpredict/stock-optimizer/pkg/solver"
	"github.com/walpredict/stock-optimizer/pkg/utils"
)

type cmdAllocate struct {
	Input    string             `long:"input" short:"i" description:"JSON request file with predictions and total_stock"`
	Demand   map[string]float64 `long:"demand" short:"d" description:"Predicted demand of a region, as region:value (repeatable)"`
	Stock    *int               `long:"stock" short:"s" description:"Total stock to allocate"`
	Strategy string             `long:"strategy" choice:"auto" choice:"milp" choice:"greedy" description:"Solve strategy"`
	Spec     string             `long:"optimizer-spec" description:"YAML or JSON optimizer spec file"`
	Local    bool               `long:"local" description:"Solve in process instead of calling the optimizer server"`
	Server   string             `long:"server" env:"STOCK_OPTIMIZER_URL" description:"Optimizer server URL"`
	Timeout  time.Duration      `long:"timeout" default:"30s" description:"Time allowed for the allocation"`
	Format   string             `long:"format" short:"o" default:"table" choice:"table" choice:"json" description:"Output format"`
	Verbose  bool               `long:"verbose" short:"v" description:"Log to stdout (level from LOG_LEVEL)"`
}

// request built from the input file and flags; flags win
func (cmd *cmdAllocate) request() (*config.AllocationRequest, error) {
	req := &config.AllocationRequest{}
	if cmd.Input != "" {
		var err error
		if req, err = utils.FromFileToSpec(cmd.Input, config.AllocationRequest{}); err != nil {
			return nil, err
		}
	}
	if len(cmd.Demand) > 0 {
		req.Predictions = cmd.Demand
	}
	if cmd.Stock != nil {
		stock := float64(*cmd.Stock)
		req.TotalStock = &stock
	}
	if req.Predictions == nil || req.TotalStock == nil {
		return nil, errors.New("predictions and total stock are required (use --input or --demand and --stock)")
	}

	override := req.Optimizer
	if cmd.Spec != "" {
		spec, err := config.LoadOptimizerSpec(cmd.Spec)
		if err != nil {
			return nil, err
		}
		override = spec.Merge(override)
	}
	if cmd.Strategy != "" {
		if override == nil {
			override = &config.OptimizerSpec{}
		}
		override.Strategy = cmd.Strategy
	}
	req.Optimizer = override
	return req, nil
}

func (cmd *cmdAllocate) run() error {
	req, err := cmd.request()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	var allocation core.AllocationMap
	if cmd.Local {
		result, err := manager.NewManager(solver.NewOptimizer(nil), nil).OptimizeRequest(ctx, req)
		if err != nil {
			return err
		}
		allocation = result.Allocation
	} else {
		c := client.NewClientFromEnv(client.Options{})
		if cmd.Server != "" {
			c = client.NewClient(cmd.Server, client.Options{})
		}
		totalStock, err := core.StockFromFloat(*req.TotalStock)
		if err != nil {
			return err
		}
		alloc, err := c.Optimize(ctx, req.Predictions, totalStock, req.Optimizer)
		if err != nil {
			return err
		}
		allocation = alloc
	}

	switch cmd.Format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(config.AllocationResponse{Allocation: allocation})
	default:
		return outputTable(os.Stdout, req, allocation)
	}
}

func outputTable(w io.Writer, req *config.AllocationRequest, allocation core.AllocationMap) error {
	totalStock, err := core.StockFromFloat(*req.TotalStock)
	if err != nil {
		return err
	}
	problem, err := core.NewProblem(req.Predictions, totalStock)
	if err != nil {
		return err
	}
	targets := problem.TargetMap()

	var table = tablewriter.NewWriter(w)
	table.Header("Region", "Demand", "Target", "Allocated", "Deviation")
	for _, r := range allocation.Regions() {
		if err := table.Append([]string{
			r,
			fmt.Sprintf("%g", req.Predictions[r]),
			fmt.Sprintf("%.3f", targets[r]),
			fmt.Sprintf("%d", allocation[r]),
			fmt.Sprintf("%.3f", float64(allocation[r])-targets[r]),
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "total: %d units, summed deviation %.3f\n", allocation.Sum(), problem.TotalDeviation(allocation))
	return nil
}

func main() {
	var cmd cmdAllocate
	parser := flags.NewParser(&cmd, flags.Default)
	parser.LongDescription = `allocate distributes a stock over regions in proportion to their predicted demand.

	Demand is read from a JSON request file ({"predictions": {...}, "total_stock": N}) or
	given with repeated --demand region:value flags and --stock. The allocation is computed
	by the optimizer server, or in process with --local.
	`
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if cmd.Verbose {
		if _, err := logger.InitLogger(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	err := cmd.run()
	logger.SyncLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
