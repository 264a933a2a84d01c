package cache

// Dependents returns the targets a successful write of kind must invalidate.
// scope is the project id for project-bound writes and is ignored elsewhere.
//
// Balances and goal progress are derived on the server, so writes that move
// money also invalidate wallets and goals.
func Dependents(kind Kind, accountID, scope string) []Target {
	switch kind {
	case KindTransaction:
		return []Target{
			All(KindTransaction, accountID),
			All(KindWallet, accountID),
			All(KindGoal, accountID),
		}
	case KindWallet:
		return []Target{
			All(KindWallet, accountID),
			All(KindGoal, accountID),
		}
	case KindProjectTransaction:
		return []Target{
			Scoped(KindProjectTransaction, accountID, scope),
			Scoped(KindProjectStatistics, accountID, scope),
		}
	case KindProject:
		return []Target{
			All(KindProject, accountID),
			Scoped(KindProjectStatistics, accountID, scope),
		}
	case KindGoal:
		return []Target{All(KindGoal, accountID)}
	case KindLabel:
		return []Target{All(KindLabel, accountID)}
	}
	return nil
}
