// Package analytics aggregates cleaned usage records.
//
// UsageAggregator produces the weekly usage series (totals, trailing moving
// average, least-squares trend, week-over-week change) and the semester-week
// comparison. EquipmentAggregator ranks equipment or categories within each
// week and summarizes how stable those ranks are. It also compares each
// identifier's semester weeks.
//
// Closure weeks never reach an aggregate: a record is dropped when it carries
// the closure flag or when its week falls in a closure period of the calendar
// the aggregator was built with. Excluded categories (building entries by
// default) never reach a ranking, and the weekly series reports them in a
// separate column so its Total matches the rankings. All floats are rounded
// half away from zero to two decimals.
package analytics
