package manual

func buildDelete(normalized string) (Statement, bool) {
	table, end, ok := ResolveTable(normalized, IntentDelete)
	if !ok {
		return nil, false
	}
	_, whereSpan := splitWhere(normalized[end:])
	return DeleteStmt{Table: table, Where: equalityConditions(whereSpan)}, true
}
