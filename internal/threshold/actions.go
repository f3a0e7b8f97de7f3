package threshold

// Severity mirrors alert severities for action lookup. Declared here so
// the action tables stay next to the categories they describe; the alert
// package re-exports its own severity type on top of these names.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var genericActions = []string{"Monitor the situation closely"}

var actionTable = map[Category]map[Severity][]string{
	CategoryCPU: {
		SeverityCritical: {
			"Identify high-CPU processes with 'top' or 'htop'",
			"Consider killing non-essential processes",
			"Scale horizontally if this is a persistent issue",
			"Check for CPU-intensive background tasks",
		},
		SeverityWarning: {
			"Monitor CPU trends over next 5-10 minutes",
			"Review recent deployments or batch jobs",
			"Check process CPU usage with 'ps aux --sort=-%cpu'",
		},
		SeverityInfo: {
			"Document current workload for baseline analysis",
			"Consider CPU profiling for optimization",
		},
	},
	CategoryMemory: {
		SeverityCritical: {
			"Restart memory-intensive applications",
			"Clear system caches if safe to do so",
			"Check for memory leaks in applications",
			"Consider adding more RAM or horizontal scaling",
		},
		SeverityWarning: {
			"Monitor memory trends closely",
			"Review application memory usage patterns",
			"Check for growing processes with 'ps aux --sort=-%mem'",
		},
		SeverityInfo: {
			"Document memory usage patterns",
			"Consider memory optimization opportunities",
		},
	},
	CategoryDisk: {
		SeverityCritical: {
			"Clean up temporary files and logs immediately",
			"Move or archive large files",
			"Clear package caches",
			"Consider disk expansion",
		},
		SeverityWarning: {
			"Identify large files and directories with 'du -sh *'",
			"Review log rotation policies",
			"Clean up old backups or archives",
		},
		SeverityInfo: {
			"Monitor disk usage trends",
			"Plan for storage capacity expansion",
		},
	},
	CategoryNetwork: {
		SeverityCritical: {
			"Inspect active connections with 'ss -tunap'",
			"Check for unexpected bulk transfers or backups",
			"Review bandwidth limits and QoS policies",
		},
		SeverityWarning: {
			"Watch interface throughput over the next few minutes",
			"Correlate with deploys or batch data jobs",
		},
		SeverityInfo: {
			"Record the traffic pattern for baseline analysis",
		},
	},
	CategoryLoad: {
		SeverityCritical: {
			"Compare load against CPU count with 'nproc'",
			"Look for runaway or blocked processes",
			"Check for IO wait with 'vmstat 1'",
		},
		SeverityWarning: {
			"Monitor run queue depth over the next few minutes",
			"Review cron schedules and batch windows",
		},
		SeverityInfo: {
			"Note the load pattern for capacity planning",
		},
	},
}

// ActionsFor returns the suggested remediation steps for a category and
// severity. Unknown combinations get a single generic action.
func ActionsFor(category Category, severity Severity) []string {
	bySeverity, ok := actionTable[category]
	if !ok {
		return genericActions
	}
	actions, ok := bySeverity[severity]
	if !ok {
		return genericActions
	}
	return actions
}
