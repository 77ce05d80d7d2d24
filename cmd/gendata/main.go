package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	defaultOutputDir = "./testdata"
	defaultLineCount = 20000
	defaultDuration  = 1
	defaultErrorRate = 0.02

	timestampLayout = "2006-01-02 15:04:05.000"
)

// serviceProfile describes one OpenStack service log file. Weights control
// how the total line count is split across services; nova-api carries the
// bulk of the traffic like it does on a real control plane.
type serviceProfile struct {
	file   string
	weight int
	pid    int
	lines  func(g *generator, ts time.Time, incident string) (string, []string)
}

var services = []serviceProfile{
	{file: "nova-api.log", weight: 30, lines: novaAPILine},
	{file: "nova-compute.log", weight: 20, lines: novaComputeLine},
	{file: "neutron-server.log", weight: 15, lines: neutronServerLine},
	{file: "glance-api.log", weight: 15, lines: glanceAPILine},
	{file: "keystone.log", weight: 10, lines: keystoneLine},
	{file: "cinder-volume.log", weight: 10, lines: cinderVolumeLine},
}

var incidentKinds = []string{"hypervisor", "network", "storage"}

func main() {
	outputDir := flag.String("output-dir", defaultOutputDir, "Output directory for generated log files")
	lineCount := flag.Int("line-count", defaultLineCount, "Total number of log lines to generate")
	durationHours := flag.Int("duration-hours", defaultDuration, "Time span the generated logs cover")
	errorRate := flag.Float64("error-rate", defaultErrorRate, "Baseline fraction of ERROR lines")
	incident := flag.String("incident", "none", "Inject a failure burst: 'none', 'hypervisor', 'network' or 'storage'")
	seed := flag.Int64("seed", 0, "Random seed (0 = use current time)")

	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	if !validIncident(*incident) {
		fmt.Fprintf(os.Stderr, "Unknown incident kind %q (want none, hypervisor, network or storage)\n", *incident)
		os.Exit(1)
	}

	fmt.Printf("Generating OpenStack log data with:\n")
	fmt.Printf("  Output directory: %s\n", *outputDir)
	fmt.Printf("  Line count: %d\n", *lineCount)
	fmt.Printf("  Duration: %d hours\n", *durationHours)
	fmt.Printf("  Error rate: %.2f\n", *errorRate)
	fmt.Printf("  Incident: %s\n", *incident)
	fmt.Printf("  Seed: %d\n", *seed)
	fmt.Println()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	g := newGenerator(rand.New(rand.NewSource(*seed)), *errorRate)

	// Span starts yesterday on a whole hour so repeated runs with the same
	// seed produce stable relative timelines.
	start := time.Now().Add(-24 * time.Hour).Truncate(time.Hour)
	span := time.Duration(*durationHours) * time.Hour

	var incidentStart, incidentEnd time.Time
	if *incident != "none" {
		incidentStart, incidentEnd = incidentWindow(start, span, g.rng)
		fmt.Printf("Incident window (%s): %s - %s\n\n",
			*incident,
			incidentStart.Format(timestampLayout),
			incidentEnd.Format(timestampLayout))
	}

	totalWeight := 0
	for _, svc := range services {
		totalWeight += svc.weight
	}

	totalLines := 0
	for _, svc := range services {
		n := *lineCount * svc.weight / totalWeight
		if n == 0 {
			n = 1
		}
		fmt.Printf("Generating %s (%d entries)\n", svc.file, n)

		written, err := writeServiceLog(g, svc, filepath.Join(*outputDir, svc.file), start, span, n, *incident, incidentStart, incidentEnd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", svc.file, err)
			os.Exit(1)
		}

		totalLines += written
		fmt.Printf("  ✓ Wrote %d lines to %s\n", written, svc.file)
	}

	fmt.Printf("\n✓ Successfully generated %d lines across %d file(s)\n", totalLines, len(services))
	fmt.Printf("  Output directory: %s\n", *outputDir)
}

func validIncident(kind string) bool {
	if kind == "none" {
		return true
	}
	for _, k := range incidentKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// incidentWindow places the failure burst in the second half of the span so
// there is healthy baseline traffic to compare against.
func incidentWindow(start time.Time, span time.Duration, rng *rand.Rand) (time.Time, time.Time) {
	offset := time.Duration(float64(span) * (0.5 + 0.3*rng.Float64()))
	length := span / 10
	if length < 2*time.Minute {
		length = 2 * time.Minute
	}
	if length > 15*time.Minute {
		length = 15 * time.Minute
	}
	ws := start.Add(offset)
	return ws, ws.Add(length)
}

// writeServiceLog writes one service's log file with monotonic timestamps.
// Each entry lands in its own slot of the span with random jitter inside the
// slot, so entries never go backwards in time.
func writeServiceLog(g *generator, svc serviceProfile, path string, start time.Time, span time.Duration, n int, incident string, incidentStart, incidentEnd time.Time) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	g.pid = 2000 + g.rng.Intn(30000)

	written := 0
	step := span / time.Duration(n)
	for i := 0; i < n; i++ {
		jitter := time.Duration(g.rng.Float64() * float64(step))
		ts := start.Add(time.Duration(i)*step + jitter)

		active := incident
		if incident == "none" || ts.Before(incidentStart) || ts.After(incidentEnd) {
			active = ""
		}

		header, continuation := svc.lines(g, ts, active)
		if _, err := fmt.Fprintln(w, header); err != nil {
			return written, err
		}
		written++
		for _, line := range continuation {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return written, err
			}
			written++
		}
	}

	if err := w.Flush(); err != nil {
		return written, err
	}
	return written, f.Close()
}

// generator holds the shared random state plus a small pool of recurring
// identifiers. Real clouds log the same instances, ports and volumes over
// and over; the pools make correlated failures point at one victim.
type generator struct {
	rng       *rand.Rand
	errorRate float64
	pid       int

	instances []string
	ports     []string
	volumes   []string
	images    []string
	project   string
	user      string
	victim    int
}

func newGenerator(rng *rand.Rand, errorRate float64) *generator {
	g := &generator{
		rng:       rng,
		errorRate: errorRate,
		project:   hex32(rng),
		user:      hex32(rng),
	}
	for i := 0; i < 20; i++ {
		g.instances = append(g.instances, newUUID(rng))
		g.ports = append(g.ports, newUUID(rng))
	}
	for i := 0; i < 10; i++ {
		g.volumes = append(g.volumes, newUUID(rng))
		g.images = append(g.images, newUUID(rng))
	}
	g.victim = rng.Intn(len(g.instances))
	return g
}

func (g *generator) header(ts time.Time, level, logger, reqCtx, message string) string {
	return fmt.Sprintf("%s %d %s %s [%s] %s",
		ts.Format(timestampLayout), g.pid, level, logger, reqCtx, message)
}

func (g *generator) requestContext() string {
	return fmt.Sprintf("req-%s %s %s - - -", newUUID(g.rng), g.user, g.project)
}

func (g *generator) serviceContext() string {
	return fmt.Sprintf("req-%s - - - - -", newUUID(g.rng))
}

func (g *generator) instance() string  { return g.instances[g.rng.Intn(len(g.instances))] }
func (g *generator) victimID() string  { return g.instances[g.victim] }
func (g *generator) port() string      { return g.ports[g.rng.Intn(len(g.ports))] }
func (g *generator) volume() string    { return g.volumes[g.rng.Intn(len(g.volumes))] }
func (g *generator) image() string     { return g.images[g.rng.Intn(len(g.images))] }
func (g *generator) isError() bool     { return g.rng.Float64() < g.errorRate }
func (g *generator) host() string      { return fmt.Sprintf("compute-%d", 1+g.rng.Intn(4)) }
func (g *generator) latency() float64  { return 0.05 + g.rng.Float64()*0.4 }
func (g *generator) bodyLen() int      { return 200 + g.rng.Intn(4000) }
func (g *generator) buildSecs() float64 { return 5 + g.rng.Float64()*30 }

func novaAPILine(g *generator, ts time.Time, incident string) (string, []string) {
	const logger = "nova.osapi_compute.wsgi.server"

	if incident == "network" && g.rng.Float64() < 0.4 {
		header := g.header(ts, "ERROR", "nova.api.openstack.extensions", g.requestContext(),
			"Unexpected exception in API method")
		return header, pythonTraceback(
			`  File "/usr/lib/python2.7/site-packages/nova/api/openstack/extensions.py", line 338, in wrapped`,
			"    return f(*args, **kwargs)",
			"NetworkNotFound: Network could not be found.",
		)
	}

	if g.isError() {
		header := g.header(ts, "ERROR", "nova.api.openstack.wsgi", g.requestContext(),
			fmt.Sprintf("Returning 500 to user: The server has either erred or is incapable of performing the requested operation. (HTTP 500) (Request-ID: req-%s)", newUUID(g.rng)))
		return header, nil
	}

	var msg string
	switch g.rng.Intn(4) {
	case 0:
		msg = fmt.Sprintf(`10.11.10.1 "GET /v2/%s/servers/detail HTTP/1.1" status: 200 len: %d time: %.7f`, g.project, g.bodyLen(), g.latency())
	case 1:
		msg = fmt.Sprintf(`10.11.10.1 "POST /v2/%s/servers HTTP/1.1" status: 202 len: %d time: %.7f`, g.project, g.bodyLen(), g.latency())
	case 2:
		msg = fmt.Sprintf(`10.11.10.1 "GET /v2/%s/servers/%s HTTP/1.1" status: 200 len: %d time: %.7f`, g.project, g.instance(), g.bodyLen(), g.latency())
	default:
		msg = fmt.Sprintf(`10.11.10.1 "DELETE /v2/%s/servers/%s HTTP/1.1" status: 204 len: 0 time: %.7f`, g.project, g.instance(), g.latency())
	}
	return g.header(ts, "INFO", logger, g.requestContext(), msg), nil
}

func novaComputeLine(g *generator, ts time.Time, incident string) (string, []string) {
	const logger = "nova.compute.manager"

	switch incident {
	case "hypervisor":
		if g.rng.Float64() < 0.5 {
			header := g.header(ts, "ERROR", logger, g.serviceContext(),
				fmt.Sprintf("[instance: %s] Instance failed to spawn", g.victimID()))
			return header, pythonTraceback(
				`  File "/usr/lib/python2.7/site-packages/nova/compute/manager.py", line 2218, in _build_resources`,
				"    yield resources",
				`  File "/usr/lib/python2.7/site-packages/nova/virt/libvirt/driver.py", line 2697, in spawn`,
				"    destroy_disks_on_failure=True)",
				"libvirtError: internal error: process exited while connecting to monitor: Cannot allocate memory",
			)
		}
	case "network":
		if g.rng.Float64() < 0.5 {
			header := g.header(ts, "ERROR", logger, g.serviceContext(),
				fmt.Sprintf("[instance: %s] Instance failed to spawn: PortBindingFailed: Binding failed for port %s, please check neutron logs for more information.", g.victimID(), g.port()))
			return header, nil
		}
	case "storage":
		if g.rng.Float64() < 0.4 {
			header := g.header(ts, "ERROR", logger, g.serviceContext(),
				fmt.Sprintf("[instance: %s] Failed to attach volume %s at /dev/vdb: VolumeNotFound: Volume %s could not be found.", g.victimID(), g.volume(), g.volume()))
			return header, nil
		}
	}

	if g.isError() {
		header := g.header(ts, "ERROR", "nova.virt.libvirt.driver", g.serviceContext(),
			fmt.Sprintf("[instance: %s] Error launching a defined domain with XML", g.instance()))
		return header, nil
	}

	if g.rng.Float64() < 0.05 {
		header := g.header(ts, "WARNING", logger, g.serviceContext(),
			fmt.Sprintf("[instance: %s] Instance shutdown by itself. Calling the stop API. Current vm_state: active, current task_state: None, original DB power_state: 1, current VM power_state: 4", g.instance()))
		return header, nil
	}

	var msg string
	switch g.rng.Intn(5) {
	case 0:
		msg = fmt.Sprintf("[instance: %s] VM Started (Lifecycle Event)", g.instance())
	case 1:
		msg = fmt.Sprintf("[instance: %s] VM Paused (Lifecycle Event)", g.instance())
	case 2:
		msg = fmt.Sprintf("[instance: %s] VM Resumed (Lifecycle Event)", g.instance())
	case 3:
		msg = fmt.Sprintf("[instance: %s] Took %.2f seconds to build instance.", g.instance(), g.buildSecs())
	default:
		return g.header(ts, "INFO", "nova.compute.resource_tracker", g.serviceContext(),
			fmt.Sprintf("Final resource view: name=%s phys_ram=%dMB used_ram=%dMB phys_disk=%dGB used_disk=%dGB total_vcpus=%d used_vcpus=%d pci_stats=[]",
				g.host(), 64512, 2048+g.rng.Intn(32768), 1600, 20+g.rng.Intn(400), 32, g.rng.Intn(24))), nil
	}
	return g.header(ts, "INFO", logger, g.serviceContext(), msg), nil
}

func neutronServerLine(g *generator, ts time.Time, incident string) (string, []string) {
	if incident == "network" && g.rng.Float64() < 0.5 {
		header := g.header(ts, "ERROR", "neutron.plugins.ml2.managers", g.requestContext(),
			fmt.Sprintf("Failed to bind port %s on host %s for vnic_type normal using segments [{'network_id': '%s', 'segmentation_id': %d, 'physical_network': None, 'network_type': u'vxlan'}]",
				g.port(), g.host(), newUUID(g.rng), 1000+g.rng.Intn(4000)))
		return header, nil
	}

	if g.isError() {
		header := g.header(ts, "ERROR", "neutron.api.v2.resource", g.requestContext(),
			"update failed: No details.")
		return header, pythonTraceback(
			`  File "/usr/lib/python2.7/site-packages/neutron/api/v2/resource.py", line 84, in resource`,
			"    result = method(request=request, **args)",
			"StaleDataError: UPDATE statement on table 'standardattributes' expected to update 1 row(s); 0 were matched.",
		)
	}

	var msg string
	switch g.rng.Intn(3) {
	case 0:
		msg = fmt.Sprintf(`10.11.10.1 "GET /v2.0/ports.json?device_id=%s HTTP/1.1" status: 200 len: %d time: %.7f`, g.instance(), g.bodyLen(), g.latency())
	case 1:
		msg = fmt.Sprintf(`10.11.10.1 "PUT /v2.0/ports/%s.json HTTP/1.1" status: 200 len: %d time: %.7f`, g.port(), g.bodyLen(), g.latency())
	default:
		return g.header(ts, "INFO", "neutron.db.agents_db", g.serviceContext(),
			fmt.Sprintf("Heartbeat received from DHCP agent on host %s", g.host())), nil
	}
	return g.header(ts, "INFO", "neutron.wsgi", g.requestContext(), msg), nil
}

func glanceAPILine(g *generator, ts time.Time, incident string) (string, []string) {
	const logger = "eventlet.wsgi.server"

	if g.isError() {
		header := g.header(ts, "ERROR", "glance.api.v2.images", g.requestContext(),
			fmt.Sprintf("Failed to find image %s to delete", g.image()))
		return header, nil
	}

	var msg string
	switch g.rng.Intn(3) {
	case 0:
		msg = fmt.Sprintf(`10.11.10.1 - - [%s] "GET /v2/images HTTP/1.1" 200 %d %.6f`, ts.Format("02/Jan/2006 15:04:05"), g.bodyLen(), g.latency())
	case 1:
		msg = fmt.Sprintf(`10.11.10.1 - - [%s] "GET /v2/images/%s HTTP/1.1" 200 %d %.6f`, ts.Format("02/Jan/2006 15:04:05"), g.image(), g.bodyLen(), g.latency())
	default:
		msg = fmt.Sprintf(`10.11.10.1 - - [%s] "GET /v2/schemas/image HTTP/1.1" 200 %d %.6f`, ts.Format("02/Jan/2006 15:04:05"), g.bodyLen(), g.latency())
	}
	return g.header(ts, "INFO", logger, g.requestContext(), msg), nil
}

func keystoneLine(g *generator, ts time.Time, incident string) (string, []string) {
	const logger = "keystone.common.wsgi"

	if g.isError() || (incident != "" && g.rng.Float64() < 0.1) {
		header := g.header(ts, "WARNING", logger, g.requestContext(),
			"Authorization failed. The request you have made requires authentication. from 10.11.10.2")
		return header, nil
	}

	var msg string
	switch g.rng.Intn(3) {
	case 0:
		msg = "POST http://controller:35357/v3/auth/tokens"
	case 1:
		msg = "GET http://controller:35357/v3/projects"
	default:
		msg = fmt.Sprintf("GET http://controller:35357/v3/users/%s", g.user)
	}
	return g.header(ts, "INFO", logger, g.requestContext(), msg), nil
}

func cinderVolumeLine(g *generator, ts time.Time, incident string) (string, []string) {
	const logger = "cinder.volume.manager"

	if incident == "storage" && g.rng.Float64() < 0.5 {
		header := g.header(ts, "ERROR", logger, g.serviceContext(),
			fmt.Sprintf("Volume %s: create failed", g.volume()))
		return header, pythonTraceback(
			`  File "/usr/lib/python2.7/site-packages/cinder/volume/manager.py", line 547, in create_volume`,
			"    _run_flow()",
			"VolumeBackendAPIException: Bad or unexpected response from the storage volume backend API: Unable to create volume: iSCSI target discovery timed out",
		)
	}

	if g.isError() {
		header := g.header(ts, "ERROR", "cinder.scheduler.flows.create_volume", g.serviceContext(),
			fmt.Sprintf("Failed to run task cinder.scheduler.flows.create_volume.ScheduleCreateVolumeTask;volume:create: No valid host was found. No weighed hosts available for volume %s", g.volume()))
		return header, nil
	}

	var msg string
	switch g.rng.Intn(3) {
	case 0:
		msg = fmt.Sprintf("Volume %s: created successfully", g.volume())
	case 1:
		msg = fmt.Sprintf("Volume %s: deleted successfully", g.volume())
	default:
		msg = fmt.Sprintf("Attaching volume %s to instance %s at mountpoint /dev/vdb", g.volume(), g.instance())
	}
	return g.header(ts, "INFO", logger, g.serviceContext(), msg), nil
}

// pythonTraceback renders continuation lines the way oslo.log emits
// multi-line exceptions: no timestamp header, so parsers fold them into the
// preceding entry.
func pythonTraceback(frames ...string) []string {
	lines := []string{"Traceback (most recent call last):"}
	return append(lines, frames...)
}

func newUUID(rng *rand.Rand) string {
	var b [16]byte
	rng.Read(b[:])
	u, err := uuid.FromBytes(b[:])
	if err != nil {
		return uuid.New().String()
	}
	return u.String()
}

func hex32(rng *rand.Rand) string {
	return fmt.Sprintf("%016x%016x", rng.Uint64(), rng.Uint64())
}
