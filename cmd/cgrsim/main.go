package main

// cgrsim loads a contact plan and a bundle workload, runs the forwarding
// simulator over them, and reports the per-bundle outcomes.  The workload
// comes from a file, or is generated synthetically when a traffic source
// is named instead.

import (
	"flag"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/iti/cgr"
	"github.com/iti/evt/evtm"
)

func usesYAML(filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}

func main() {
	planFile := flag.String("plan", "", "contact plan file (.yaml or .json)")
	cfgFile := flag.String("cfg", "", "simulator configuration file, optional")
	bndlFile := flag.String("bundles", "", "bundle workload file")
	traceFile := flag.String("trace", "", "trace output file, optional")

	genSrc := flag.String("gensrc", "", "source node for synthetic traffic, replaces -bundles")
	genRate := flag.Float64("genrate", 1.0, "synthetic bundle arrival rate, bundles/sec")
	genSize := flag.Float64("gensize", 1000.0, "synthetic bundle size, bytes")
	genCount := flag.Int("gencount", 10, "number of synthetic bundles")

	flag.Parse()

	if len(*planFile) == 0 {
		fmt.Fprintln(os.Stderr, "cgrsim: -plan is required")
		os.Exit(1)
	}

	cpc, err := cgr.ReadContactPlanCfg(*planFile, usesYAML(*planFile), []byte{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cgrsim: reading plan: %v\n", err)
		os.Exit(1)
	}
	plan, err := cgr.BuildContactPlan(cpc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cgrsim: building plan: %v\n", err)
		os.Exit(1)
	}

	cfg := cgr.CreateSimCfg()
	if len(*cfgFile) > 0 {
		cfg, err = cgr.ReadSimCfg(*cfgFile, usesYAML(*cfgFile), []byte{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "cgrsim: reading configuration: %v\n", err)
			os.Exit(1)
		}
	}
	if len(*traceFile) > 0 {
		cfg.Tracing = true
	}

	tm := cgr.CreateTraceManager(cpc.PlanName, cfg.Tracing)
	if tm.Active() {
		for name, node := range plan.NodeByName {
			tm.AddName(node.Number, name, "node")
		}
	}

	sim, err := cgr.CreateSimulator(plan, cfg, tm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cgrsim: %v\n", err)
		os.Exit(1)
	}

	var bundles []*cgr.Bundle
	if len(*genSrc) > 0 {
		srcNode, present := plan.NodeByName[*genSrc]
		if !present {
			fmt.Fprintf(os.Stderr, "cgrsim: plan has no node %s\n", *genSrc)
			os.Exit(1)
		}
		dests := make([]int, 0)
		for _, node := range plan.NodeByID {
			if node.Number != srcNode.Number {
				dests = append(dests, node.Number)
			}
		}
		tg, gerr := cgr.CreateTrafficGen(*genSrc, srcNode.Number, *genRate,
			[]float64{*genSize}, dests, 0.0)
		if gerr != nil {
			fmt.Fprintf(os.Stderr, "cgrsim: %v\n", gerr)
			os.Exit(1)
		}
		bundles = tg.Workload(*genCount)
	} else {
		if len(*bndlFile) == 0 {
			fmt.Fprintln(os.Stderr, "cgrsim: one of -bundles or -gensrc is required")
			os.Exit(1)
		}
		bsc, berr := cgr.ReadBundleSetCfg(*bndlFile, usesYAML(*bndlFile), []byte{})
		if berr != nil {
			fmt.Fprintf(os.Stderr, "cgrsim: reading bundles: %v\n", berr)
			os.Exit(1)
		}
		bundles, err = cgr.BuildBundles(bsc, plan)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cgrsim: %v\n", err)
			os.Exit(1)
		}
	}

	evtMgr := evtm.New()
	sim.RunBundles(evtMgr, bundles)
	evtMgr.Run(1e9)

	routed := 0
	for _, outcome := range sim.Outcomes {
		bndl := outcome.Bundle
		src := plan.NodeByID[bndl.SrcID].Name
		dst := plan.NodeByID[bndl.DstID].Name
		switch outcome.State {
		case cgr.BundleRouted:
			routed += 1
			hops := make([]string, 0, len(outcome.Route.Hops))
			for _, cnt := range outcome.Route.Hops {
				hops = append(hops, fmt.Sprintf("%s->%s", cnt.TxNode.Name, cnt.RxNode.Name))
			}
			fmt.Printf("%s %s->%s size %v created %v: Routed via %s, arrival %v\n",
				bndl.ID, src, dst, bndl.Size, bndl.Creation,
				strings.Join(hops, " "), outcome.Arrival)
		case cgr.BundleExpired:
			fmt.Printf("%s %s->%s size %v created %v: Expired, best arrival %v after deadline %v\n",
				bndl.ID, src, dst, bndl.Size, bndl.Creation, outcome.Arrival, bndl.Deadline)
		default:
			fmt.Printf("%s %s->%s size %v created %v: Unroutable (%v)\n",
				bndl.ID, src, dst, bndl.Size, bndl.Creation, outcome.Err)
		}
	}
	fmt.Printf("%d of %d bundles routed\n", routed, len(sim.Outcomes))

	if len(*traceFile) > 0 {
		tm.WriteToFile(*traceFile, true)
	}
}
