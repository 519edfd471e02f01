/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements named configuration record persistence behind a
// uniform contract with two interchangeable backends: a directory of one
// JSON document per record, and a single relational table addressed through
// an injected database/sql handle. A specifier string ("file:<dir>" or
// "db:/<connection>/<table>") selects the backend via Open.
// Both backends also support exporting their namespace to a flat tar
// archive of <name>.json entries and importing such an archive back.
package storage
