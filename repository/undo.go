/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"
	"sync"
)

// undoLog collects the in-memory reverts of writes made inside a
// transaction started by RunInTx. They run only when the transaction does
// not commit, so a record keeps its audit and version fields exactly when
// its row is stored.
type undoLog struct {
	mu  sync.Mutex
	fns []func()
}

type undoLogKey struct{}

func withUndoLog(ctx context.Context) (context.Context, *undoLog) {
	l := &undoLog{}
	return context.WithValue(ctx, undoLogKey{}, l), l
}

// deferUndo hands fn to the transaction running on ctx. Without one the
// write has already committed and fn is dropped.
func deferUndo(ctx context.Context, fn func()) {
	if l, ok := ctx.Value(undoLogKey{}).(*undoLog); ok {
		l.mu.Lock()
		l.fns = append(l.fns, fn)
		l.mu.Unlock()
	}
}

// revert runs the collected functions newest first.
func (l *undoLog) revert() {
	l.mu.Lock()
	fns := l.fns
	l.fns = nil
	l.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
